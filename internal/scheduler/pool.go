package scheduler

// CorePool tracks which worker cores are busy. It is owned by the
// scheduling loop and is not safe for concurrent use.
type CorePool struct {
	cores []int
	busy  map[int]bool
}

// NewCorePool reserves the first available core for the orchestrator and
// pools the rest, capped at maxWorkers when it is positive. With a single
// available core the pool shares it with the orchestrator.
func NewCorePool(available []int, maxWorkers int) (reserved int, pool *CorePool) {
	if len(available) == 0 {
		available = []int{0}
	}
	reserved = available[0]
	cores := append([]int(nil), available[1:]...)
	if len(cores) == 0 {
		cores = []int{reserved}
	}
	if maxWorkers > 0 && len(cores) > maxWorkers {
		cores = cores[:maxWorkers]
	}
	return reserved, &CorePool{cores: cores, busy: make(map[int]bool, len(cores))}
}

// Admit marks the first free core busy.
func (p *CorePool) Admit() (int, bool) {
	for _, c := range p.cores {
		if !p.busy[c] {
			p.busy[c] = true
			return c, true
		}
	}
	return 0, false
}

// Release frees core. Releasing a free or unknown core is a no-op.
func (p *CorePool) Release(core int) { delete(p.busy, core) }

func (p *CorePool) Size() int    { return len(p.cores) }
func (p *CorePool) Busy() int    { return len(p.busy) }
func (p *CorePool) Cores() []int { return append([]int(nil), p.cores...) }

//go:build linux

package affinity

import (
	"fmt"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// PinProcess binds every thread of the calling process to core. Threads
// created afterwards inherit the mask.
func PinProcess(core int) error {
	var set unix.CPUSet
	set.Set(core)

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("pin to core %d: %w", core, err)
	}
	threads, err := procfs.AllThreads(unix.Getpid())
	if err != nil {
		return fmt.Errorf("listing threads: %w", err)
	}
	for _, t := range threads {
		// A thread may exit between listing and pinning.
		if err := unix.SchedSetaffinity(t.PID, &set); err != nil && err != unix.ESRCH {
			return fmt.Errorf("pin thread %d to core %d: %w", t.PID, core, err)
		}
	}
	return nil
}

// Allowed lists the cores the process may run on, ascending.
func Allowed() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}
	n := set.Count()
	out := make([]int, 0, n)
	for c := 0; len(out) < n; c++ {
		if set.IsSet(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// internal/poa/align.go
package poa

import "math"

// Params are gap-affine costs (lower is better). GapOpen 0 gives linear gaps.
// A gap of length L costs GapOpen + L*GapExtend.
type Params struct {
	Mismatch  int32
	GapOpen   int32
	GapExtend int32
}

var (
	AffineParams = Params{Mismatch: 4, GapOpen: 6, GapExtend: 2}
	LinearParams = Params{Mismatch: 4, GapOpen: 0, GapExtend: 2}
)

// AlignedPair pairs a graph node with a sequence position; -1 marks a gap.
type AlignedPair struct {
	Node int
	Pos  int
}

// Alignment is a path from the graph start to the graph end.
type Alignment []AlignedPair

// Result of aligning one sequence to a graph.
type Result struct {
	Score     int
	Visited   int
	Alignment Alignment
}

const inf = math.MaxInt32 / 4

func add(a, b int32) int32 {
	if a >= inf {
		return inf
	}
	return a + b
}

func min3(a, b, c int32) int32 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

type state uint8

const (
	stM state = iota
	stI
	stD
)

type matrices struct {
	w       int
	m, i, d []int32
}

func (mx *matrices) at(s state, r, j int) int32 {
	idx := r*mx.w + j
	switch s {
	case stI:
		return mx.i[idx]
	case stD:
		return mx.d[idx]
	default:
		return mx.m[idx]
	}
}

// Align globally aligns seq to g: the path starts at a source node, ends at a
// sink node, and consumes all of seq. Row 0 of the DP is a virtual start.
func (p Params) Align(g *Graph, seq []byte) Result {
	n := len(seq)
	N := g.NodeCount()
	w := n + 1
	oe := p.GapOpen + p.GapExtend
	mx := &matrices{
		w: w,
		m: make([]int32, (N+1)*w),
		i: make([]int32, (N+1)*w),
		d: make([]int32, (N+1)*w),
	}
	for k := range mx.m {
		mx.m[k], mx.i[k], mx.d[k] = inf, inf, inf
	}
	mx.m[0] = 0
	for j := 1; j <= n; j++ {
		mx.i[j] = p.GapOpen + p.GapExtend*int32(j)
	}

	preds := make([][]int, N+1)
	for r := 1; r <= N; r++ {
		v := g.order[r-1]
		in := g.nodes[v].In
		if len(in) == 0 {
			preds[r] = []int{0}
			continue
		}
		pr := make([]int, len(in))
		for k, u := range in {
			pr[k] = g.rank[u] + 1
		}
		preds[r] = pr
	}

	for r := 1; r <= N; r++ {
		base := g.nodes[g.order[r-1]].Base
		row := r * w
		for j := 0; j <= n; j++ {
			idx := row + j
			best := int32(inf)
			for _, q := range preds[r] {
				qi := q*w + j
				best = min3(best, add(mx.m[qi], oe), min(add(mx.i[qi], oe), add(mx.d[qi], p.GapExtend)))
			}
			mx.d[idx] = best
			if j == 0 {
				continue
			}
			diag := int32(inf)
			for _, q := range preds[r] {
				qi := q*w + j - 1
				diag = min3(diag, mx.m[qi], min(mx.i[qi], mx.d[qi]))
			}
			sub := p.Mismatch
			if seq[j-1] == base {
				sub = 0
			}
			mx.m[idx] = add(diag, sub)
			mx.i[idx] = min3(add(mx.m[idx-1], oe), add(mx.i[idx-1], p.GapExtend), add(mx.d[idx-1], oe))
		}
	}

	res := Result{Visited: (N + 1) * (n + 1) * 3}
	if N == 0 {
		if n > 0 {
			res.Score = int(mx.i[n])
		}
		for j := 0; j < n; j++ {
			res.Alignment = append(res.Alignment, AlignedPair{Node: -1, Pos: j})
		}
		return res
	}

	endR, endS, endV := 0, stM, int32(inf)
	for r := 1; r <= N; r++ {
		if len(g.nodes[g.order[r-1]].Out) != 0 {
			continue
		}
		for _, s := range []state{stM, stI, stD} {
			if v := mx.at(s, r, n); v < endV {
				endR, endS, endV = r, s, v
			}
		}
	}
	res.Score = int(endV)
	res.Alignment = traceback(g, p, mx, preds, seq, endR, endS)
	return res
}

func traceback(g *Graph, p Params, mx *matrices, preds [][]int, seq []byte, r int, s state) Alignment {
	oe := p.GapOpen + p.GapExtend
	j := len(seq)
	var rev Alignment
	for r != 0 || j != 0 {
		cur := mx.at(s, r, j)
		switch s {
		case stM:
			node := g.order[r-1]
			sub := p.Mismatch
			if seq[j-1] == g.nodes[node].Base {
				sub = 0
			}
			r, s = findPred(mx, preds[r], j-1, cur, func(st state) int32 {
				return sub
			})
			rev = append(rev, AlignedPair{Node: node, Pos: j - 1})
			j--
		case stD:
			node := g.order[r-1]
			r, s = findPred(mx, preds[r], j, cur, func(st state) int32 {
				if st == stD {
					return p.GapExtend
				}
				return oe
			})
			rev = append(rev, AlignedPair{Node: node, Pos: -1})
		case stI:
			ns := stM
			switch {
			case add(mx.at(stM, r, j-1), oe) == cur:
				ns = stM
			case add(mx.at(stI, r, j-1), p.GapExtend) == cur:
				ns = stI
			default:
				ns = stD
			}
			rev = append(rev, AlignedPair{Node: -1, Pos: j - 1})
			s = ns
			j--
		}
	}
	for a, b := 0, len(rev)-1; a < b; a, b = a+1, b-1 {
		rev[a], rev[b] = rev[b], rev[a]
	}
	return rev
}

// findPred locates the predecessor row and state that produced cur at column j.
func findPred(mx *matrices, preds []int, j int, cur int32, cost func(state) int32) (int, state) {
	for _, q := range preds {
		for _, st := range []state{stM, stI, stD} {
			if add(mx.at(st, q, j), cost(st)) == cur {
				return q, st
			}
		}
	}
	// Unreachable for a consistent matrix; fall back to the first predecessor.
	return preds[0], stM
}

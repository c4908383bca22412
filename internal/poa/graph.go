// Package poa holds a partial-order alignment graph and a global
// sequence-to-graph aligner over it.
//
// Node ids are dense and stable; the topological order is recomputed after
// every mutation so the aligner can sweep nodes front to back.
package poa

import (
	"errors"
	"fmt"
)

// ErrCycle is returned when a mutation would leave the graph cyclic.
var ErrCycle = errors.New("poa: graph contains a cycle")

// Edge is a directed link weighted by the number of sequences crossing it.
type Edge struct {
	To     int
	Weight int
}

// Node is a single base in the graph.
type Node struct {
	Base    byte
	Out     []Edge
	In      []int
	Aligned []int // nodes sharing this node's column with a different base
}

// Graph is a partial-order alignment graph (a DAG of bases).
type Graph struct {
	nodes []Node
	order []int // node ids in topological order
	rank  []int // node id -> index in order
	edges int
	seqs  int
}

// New returns an empty graph.
func New() *Graph { return &Graph{} }

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return g.edges }
func (g *Graph) Empty() bool    { return len(g.nodes) == 0 }

// Node returns node id. The returned value shares slices with the graph.
func (g *Graph) Node(id int) Node { return g.nodes[id] }

// Order returns node ids in topological order.
func (g *Graph) Order() []int { return g.order }

func (g *Graph) addNode(b byte) int {
	g.nodes = append(g.nodes, Node{Base: b})
	return len(g.nodes) - 1
}

func (g *Graph) addEdge(from, to int) {
	out := g.nodes[from].Out
	for i := range out {
		if out[i].To == to {
			out[i].Weight++
			return
		}
	}
	g.nodes[from].Out = append(out, Edge{To: to, Weight: 1})
	g.nodes[to].In = append(g.nodes[to].In, from)
	g.edges++
}

// alignNodes records a and b as occupying the same column.
func (g *Graph) alignNodes(existing, added int) {
	group := append([]int{existing}, g.nodes[existing].Aligned...)
	for _, m := range group {
		g.nodes[m].Aligned = append(g.nodes[m].Aligned, added)
	}
	g.nodes[added].Aligned = append(g.nodes[added].Aligned, group...)
}

// AddSequence threads seq through the graph following aln, creating nodes for
// insertions and mismatches. An empty graph accepts a nil alignment.
func (g *Graph) AddSequence(seq []byte, aln Alignment) error {
	if len(seq) == 0 {
		return nil
	}
	if g.Empty() || len(aln) == 0 {
		if !g.Empty() {
			return fmt.Errorf("poa: empty alignment for non-empty graph")
		}
		prev := -1
		for _, b := range seq {
			cur := g.addNode(b)
			if prev >= 0 {
				g.addEdge(prev, cur)
			}
			prev = cur
		}
		g.seqs++
		return g.sort()
	}

	next := 0
	prev := -1
	for _, p := range aln {
		if p.Pos < 0 {
			continue
		}
		if p.Pos != next {
			return fmt.Errorf("poa: alignment skips sequence position %d", next)
		}
		next++
		b := seq[p.Pos]
		var cur int
		switch {
		case p.Node < 0:
			cur = g.addNode(b)
		case g.nodes[p.Node].Base == b:
			cur = p.Node
		default:
			cur = -1
			for _, a := range g.nodes[p.Node].Aligned {
				if g.nodes[a].Base == b {
					cur = a
					break
				}
			}
			if cur < 0 {
				cur = g.addNode(b)
				g.alignNodes(p.Node, cur)
			}
		}
		if prev >= 0 {
			g.addEdge(prev, cur)
		}
		prev = cur
	}
	if next != len(seq) {
		return fmt.Errorf("poa: alignment covers %d of %d bases", next, len(seq))
	}
	g.seqs++
	return g.sort()
}

// sort recomputes the topological order (Kahn, ties by node id).
func (g *Graph) sort() error {
	n := len(g.nodes)
	indeg := make([]int, n)
	for i := range g.nodes {
		indeg[i] = len(g.nodes[i].In)
	}
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			order = append(order, i)
		}
	}
	for head := 0; head < len(order); head++ {
		for _, e := range g.nodes[order[head]].Out {
			indeg[e.To]--
			if indeg[e.To] == 0 {
				order = append(order, e.To)
			}
		}
	}
	if len(order) != n {
		return ErrCycle
	}
	rank := make([]int, n)
	for i, id := range order {
		rank[id] = i
	}
	g.order, g.rank = order, rank
	return nil
}

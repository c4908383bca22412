// internal/poa/dot.go
package poa

import (
	"bufio"
	"fmt"
	"io"
)

// WriteDOT renders g in Graphviz DOT; edge labels are sequence weights and
// aligned nodes are joined by dotted undirected edges.
func WriteDOT(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph poa {")
	fmt.Fprintln(bw, "  rankdir=LR;")
	fmt.Fprintln(bw, "  node [shape=circle];")
	for _, id := range g.Order() {
		fmt.Fprintf(bw, "  n%d [label=\"%c\"];\n", id, g.Node(id).Base)
	}
	for _, id := range g.Order() {
		n := g.Node(id)
		for _, e := range n.Out {
			fmt.Fprintf(bw, "  n%d -> n%d [label=\"%d\"];\n", id, e.To, e.Weight)
		}
		for _, a := range n.Aligned {
			if a > id {
				fmt.Fprintf(bw, "  n%d -> n%d [style=dotted, arrowhead=none];\n", id, a)
			}
		}
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

// internal/poa/msa.go
package poa

import (
	"context"
	"fmt"
	"io"

	"poabench/internal/fasta"
)

// FromMSA builds a graph from a FASTA multiple sequence alignment ('-' gaps).
// Bases sharing a column and a letter share a node; different letters in one
// column become aligned nodes.
func FromMSA(ctx context.Context, r io.Reader) (*Graph, error) {
	g := New()
	var (
		width   = -1
		columns []map[byte]int
	)
	err := fasta.Scan(ctx, r, func(rec fasta.Record) error {
		if width < 0 {
			width = len(rec.Seq)
			columns = make([]map[byte]int, width)
		}
		if len(rec.Seq) != width {
			return fmt.Errorf("msa row %q has %d columns, want %d", rec.Name, len(rec.Seq), width)
		}
		prev := -1
		for c, b := range rec.Seq {
			if b == '-' || b == '.' {
				continue
			}
			col := columns[c]
			if col == nil {
				col = make(map[byte]int, 2)
				columns[c] = col
			}
			cur, ok := col[b]
			if !ok {
				cur = g.addNode(b)
				for _, other := range col {
					g.alignNodes(other, cur)
					break
				}
				col[b] = cur
			}
			if prev >= 0 {
				g.addEdge(prev, cur)
			}
			prev = cur
		}
		g.seqs++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := g.sort(); err != nil {
		return nil, err
	}
	return g, nil
}

// internal/algo/poa.go
package algo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"poabench/internal/dataset"
	"poabench/internal/fasta"
	"poabench/internal/poa"
	"poabench/pkg/api"
)

// POA is the built-in partial-order aligner with fixed costs.
type POA struct {
	name   string
	params poa.Params
}

// NewAffinePOA: mismatch 4, gap open 6, gap extend 2.
func NewAffinePOA() *POA { return &POA{name: "poa", params: poa.AffineParams} }

// NewLinearPOA: mismatch 4, gap 2.
func NewLinearPOA() *POA { return &POA{name: "poa-linear", params: poa.LinearParams} }

func (a *POA) Name() string { return a.name }

func (a *POA) Supports(kind api.BenchmarkKind) bool {
	return kind == api.SingleItem || kind == api.WholeSet
}

// PrepareGraph loads <out>/<id>/graph.msa.fasta when present, otherwise
// aligns the graph set progressively.
func (a *POA) PrepareGraph(ctx context.Context, ds dataset.Dataset, outDir string) (Graph, error) {
	msaPath := ds.GraphMSAPath(outDir)
	if rc, err := fasta.Open(msaPath); err == nil {
		defer rc.Close()
		g, err := poa.FromMSA(ctx, rc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", msaPath, err)
		}
		return g, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if !ds.HasGraphSet() {
		return nil, fmt.Errorf("%s: %w", ds.ID, ErrNoGraphInput)
	}
	recs, err := fasta.ReadFile(ctx, ds.GraphSequencesPath())
	if err != nil {
		return nil, err
	}
	return a.build(ctx, recs)
}

func (a *POA) AlignOne(g Graph, rec fasta.Record) (Result, error) {
	pg, ok := g.(*poa.Graph)
	if !ok {
		return Result{}, fmt.Errorf("%s: unexpected graph type %T", a.name, g)
	}
	res := a.params.Align(pg, rec.Seq)
	return Result{Score: uint64(res.Score), Visited: uint64(res.Visited), Detail: res.Alignment}, nil
}

func (a *POA) AlignWholeSet(ctx context.Context, recs []fasta.Record) (Graph, error) {
	return a.build(ctx, recs)
}

func (a *POA) WriteGraph(w io.Writer, g Graph) error {
	pg, ok := g.(*poa.Graph)
	if !ok {
		return fmt.Errorf("%s: unexpected graph type %T", a.name, g)
	}
	return poa.WriteDOT(w, pg)
}

func (a *POA) build(ctx context.Context, recs []fasta.Record) (*poa.Graph, error) {
	g := poa.New()
	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var aln poa.Alignment
		if !g.Empty() {
			aln = a.params.Align(g, r.Seq).Alignment
		}
		if err := g.AddSequence(r.Seq, aln); err != nil {
			return nil, fmt.Errorf("adding %s: %w", r.Name, err)
		}
	}
	return g, nil
}

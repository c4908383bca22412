// Package worker runs one benchmark job inside the current process and
// streams its measurements as protocol lines.
//
// A run ends with exactly one Finished line on success. Any error returned
// by Run means no Finished line was written; the caller must exit non-zero.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"poabench/internal/algo"
	"poabench/internal/bench"
	"poabench/internal/dataset"
	"poabench/internal/fasta"
	"poabench/pkg/api"
)

// Options identify the job and where its inputs and outputs live.
type Options struct {
	DatasetsDir string
	OutputDir   string
	Core        *int // nil runs unpinned
	Dataset     string
	Algorithm   string
	Kind        api.BenchmarkKind
}

func (o Options) Job() api.Job {
	return api.Job{Algorithm: o.Algorithm, Dataset: o.Dataset, Kind: o.Kind}
}

// Runtime holds the collaborators of a worker run.
type Runtime struct {
	Algorithms *algo.Registry
	Meter      *bench.Meter
	Pin        func(core int) error
	Logger     *slog.Logger
}

// Run executes the job and writes protocol lines to out.
func (rt *Runtime) Run(ctx context.Context, o Options, out io.Writer) error {
	log := rt.logger().With("dataset", o.Dataset, "algorithm", o.Algorithm, "kind", string(o.Kind))
	if o.Core != nil {
		log = log.With("core", *o.Core)
	}

	alg, err := rt.Algorithms.Lookup(o.Algorithm)
	if err != nil {
		return err
	}
	if !alg.Supports(o.Kind) {
		return fmt.Errorf("%s does not support %s benchmarks", alg.Name(), o.Kind)
	}

	if o.Core != nil && rt.Pin != nil {
		if err := rt.Pin(*o.Core); err != nil {
			log.Warn("core pinning failed, running unpinned", "err", err)
		}
	}

	ds, err := dataset.Load(o.DatasetsDir, o.Dataset)
	if err != nil {
		return err
	}

	switch o.Kind {
	case api.SingleItem:
		err = rt.singleItem(ctx, log, alg, ds, o, out)
	case api.WholeSet:
		err = rt.wholeSet(ctx, log, alg, ds, o, out)
	default:
		err = fmt.Errorf("unknown benchmark kind %q", o.Kind)
	}
	if err != nil {
		return err
	}
	return api.WriteLine(out, api.Finished{Core: o.Core})
}

func (rt *Runtime) logger() *slog.Logger {
	if rt.Logger == nil {
		return slog.Default()
	}
	return rt.Logger
}

func (rt *Runtime) singleItem(ctx context.Context, log *slog.Logger, alg algo.Algorithm, ds dataset.Dataset, o Options, out io.Writer) error {
	graph, err := alg.PrepareGraph(ctx, ds, o.OutputDir)
	if err != nil {
		return fmt.Errorf("preparing graph: %w", err)
	}
	items, err := fasta.ReadFile(ctx, ds.AlignSequencesPath())
	if err != nil {
		return err
	}
	nodes, edges := uint64(graph.NodeCount()), uint64(graph.EdgeCount())
	log.Debug("inputs loaded", "graph_nodes", nodes, "graph_edges", edges, "items", len(items))

	baseline := rt.Meter.Baseline()
	for _, rec := range items {
		var alignErr error
		meas, res := bench.Measure(rt.Meter, baseline, func() algo.Result {
			r, err := alg.AlignOne(graph, rec)
			alignErr = err
			return r
		})
		if alignErr != nil {
			return fmt.Errorf("aligning %s: %w", rec.Name, alignErr)
		}
		msg := api.SingleItemMeasurement{
			Algorithm:  alg.Name(),
			Dataset:    ds.ID,
			Score:      res.Score,
			GraphNodes: nodes,
			GraphEdges: edges,
			ItemName:   rec.Name,
			ItemLength: uint64(rec.Len()),
			Visited:    res.Visited,
			Measured:   meas,
		}
		if err := api.WriteLine(out, msg); err != nil {
			return err
		}
	}
	return nil
}

type wholeSetResult struct {
	graph algo.Graph
	err   error
}

func (rt *Runtime) wholeSet(ctx context.Context, log *slog.Logger, alg algo.Algorithm, ds dataset.Dataset, o Options, out io.Writer) error {
	recs, err := wholeSetInput(ctx, log, ds, o.OutputDir)
	if err != nil {
		return err
	}
	log.Debug("inputs loaded", "sequences", len(recs))

	baseline := rt.Meter.Baseline()
	meas, res := bench.Measure(rt.Meter, baseline, func() wholeSetResult {
		g, err := alg.AlignWholeSet(ctx, recs)
		return wholeSetResult{graph: g, err: err}
	})
	if res.err != nil {
		return fmt.Errorf("aligning whole set: %w", res.err)
	}

	if gw, ok := alg.(algo.GraphWriter); ok {
		if err := writeGraph(gw, res.graph, ds.WholeSetGraphPath(o.OutputDir, alg.Name())); err != nil {
			return err
		}
	}
	return api.WriteLine(out, api.WholeSetMeasurement{
		Algorithm: alg.Name(),
		Dataset:   ds.ID,
		Measured:  meas,
	})
}

// wholeSetInput reads the combined sorted set, or the graph set followed by
// the align set when no combined file has been produced.
func wholeSetInput(ctx context.Context, log *slog.Logger, ds dataset.Dataset, outDir string) ([]fasta.Record, error) {
	combined := ds.CombinedSortedPath(outDir)
	recs, err := fasta.ReadFile(ctx, combined)
	if err == nil {
		return recs, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	log.Warn("combined sorted set missing, using graph set then align set", "path", combined)

	var all []fasta.Record
	if ds.HasGraphSet() {
		g, err := fasta.ReadFile(ctx, ds.GraphSequencesPath())
		if err != nil {
			return nil, err
		}
		all = append(all, g...)
	}
	a, err := fasta.ReadFile(ctx, ds.AlignSequencesPath())
	if err != nil {
		return nil, err
	}
	return append(all, a...), nil
}

func writeGraph(gw algo.GraphWriter, g algo.Graph, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gw.WriteGraph(f, g); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

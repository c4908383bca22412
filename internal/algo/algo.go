// Package algo defines the capability every benchmarked aligner provides and
// a registry of the available implementations.
//
// The scheduler and protocol only ever see algorithm names; adding an
// aligner means implementing Algorithm and registering it.
package algo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"poabench/internal/dataset"
	"poabench/internal/fasta"
	"poabench/pkg/api"
)

var (
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
	ErrNoGraphInput     = errors.New("dataset has neither a prebuilt graph nor a graph set")
)

// Graph is an algorithm-specific alignment graph.
type Graph interface {
	NodeCount() int
	EdgeCount() int
}

// Result of aligning one item. Detail holds whatever the aligner produced
// beyond the score (e.g. the alignment path); it is kept alive until the
// measurement of the call completes.
type Result struct {
	Score   uint64
	Visited uint64
	Detail  any
}

// Algorithm is the capability interface of a benchmarked aligner.
type Algorithm interface {
	Name() string
	Supports(kind api.BenchmarkKind) bool
	// PrepareGraph builds or loads the reference graph for single-item runs.
	PrepareGraph(ctx context.Context, ds dataset.Dataset, outDir string) (Graph, error)
	AlignOne(g Graph, rec fasta.Record) (Result, error)
	// AlignWholeSet builds a graph from all records in order.
	AlignWholeSet(ctx context.Context, recs []fasta.Record) (Graph, error)
}

// GraphWriter is implemented by algorithms that can persist a graph.
type GraphWriter interface {
	WriteGraph(w io.Writer, g Graph) error
}

// Registry maps algorithm names to implementations, preserving
// registration order.
type Registry struct {
	byName map[string]Algorithm
	names  []string
}

func NewRegistry(algs ...Algorithm) *Registry {
	r := &Registry{byName: make(map[string]Algorithm, len(algs))}
	for _, a := range algs {
		r.Register(a)
	}
	return r
}

// Register adds a; a later registration under the same name wins.
func (r *Registry) Register(a Algorithm) {
	name := a.Name()
	if _, dup := r.byName[name]; !dup {
		r.names = append(r.names, name)
	}
	r.byName[name] = a
}

func (r *Registry) Lookup(name string) (Algorithm, error) {
	a, ok := r.byName[name]
	if !ok {
		known := append([]string(nil), r.names...)
		sort.Strings(known)
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownAlgorithm, name, strings.Join(known, ", "))
	}
	return a, nil
}

// Names in registration order.
func (r *Registry) Names() []string { return append([]string(nil), r.names...) }

// Default is the registry of built-in aligners.
func Default() *Registry {
	return NewRegistry(NewAffinePOA(), NewLinearPOA())
}

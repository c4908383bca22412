// internal/cli/options.go
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"poabench/internal/algo"
	"poabench/internal/cmdutil"
	"poabench/internal/config"
	"poabench/internal/worker"
	"poabench/pkg/api"
)

// Logging holds the flags shared by both subcommands.
type Logging struct {
	Format  string
	Quiet   bool
	Verbose bool
}

func (l Logging) Options() cmdutil.LogOptions {
	return cmdutil.LogOptions{Format: l.Format, Quiet: l.Quiet, Verbose: l.Verbose}
}

func registerLogging(fs *pflag.FlagSet, l *Logging) {
	fs.StringVar(&l.Format, "log-format", cmdutil.LogText, "log format: text | json")
	fs.BoolVarP(&l.Quiet, "quiet", "q", false, "log warnings and errors only")
	fs.BoolVarP(&l.Verbose, "verbose", "v", false, "log debug messages")
}

// Bench holds the flags of the orchestrator.
type Bench struct {
	DatasetsDir   string
	OutputDir     string
	Algorithms    []string
	Kinds         []string
	IncludePrefix string
	MaxWorkers    int
	NoPin         bool
	WorkerExe     string
	Archive       string
	MetricsAddr   string
	Config        string
	Log           Logging
}

func RegisterBench(fs *pflag.FlagSet, b *Bench) {
	// Input / output
	fs.StringVarP(&b.DatasetsDir, "datasets-dir", "d", "", "root directory of dataset definitions [*]")
	fs.StringVarP(&b.OutputDir, "output-dir", "o", "", "directory for result tables and graph artifacts [*]")
	fs.StringVar(&b.IncludePrefix, "include-prefix", "", "only run datasets whose id starts with this prefix")
	fs.StringVar(&b.Archive, "archive", "", "also write every protocol message to this JSONL file")

	// Selection
	fs.StringArrayVarP(&b.Algorithms, "algorithm", "a", nil, "algorithm to benchmark (repeatable; default all)")
	fs.StringArrayVarP(&b.Kinds, "kind", "k", nil, "benchmark kind: single-item | whole-set (repeatable; default both)")

	// Execution
	fs.IntVar(&b.MaxWorkers, "max-workers", 0, "cap on concurrent workers (0 = all free cores)")
	fs.BoolVar(&b.NoPin, "no-pin", false, "do not pin the orchestrator or workers to cores")
	fs.StringVar(&b.WorkerExe, "worker-exe", "", "worker executable (default: this binary)")

	// Misc
	fs.StringVar(&b.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on host:port while running")
	fs.StringVarP(&b.Config, "config", "c", "", "YAML run configuration; explicit flags win")
	registerLogging(fs, &b.Log)
}

// ApplyConfig fills every field whose flag was not set explicitly.
func (b *Bench) ApplyConfig(cfg *config.Config, changed func(flag string) bool) {
	str := func(flag string, dst *string, v string) {
		if !changed(flag) && v != "" {
			*dst = v
		}
	}
	str("datasets-dir", &b.DatasetsDir, cfg.DatasetsDir)
	str("output-dir", &b.OutputDir, cfg.OutputDir)
	str("include-prefix", &b.IncludePrefix, cfg.IncludePrefix)
	str("worker-exe", &b.WorkerExe, cfg.WorkerExe)
	str("archive", &b.Archive, cfg.Archive)
	str("metrics-addr", &b.MetricsAddr, cfg.MetricsAddr)
	str("log-format", &b.Log.Format, cfg.LogFormat)
	if !changed("algorithm") && len(cfg.Algorithms) > 0 {
		b.Algorithms = cfg.Algorithms
	}
	if !changed("kind") && len(cfg.Kinds) > 0 {
		b.Kinds = cfg.Kinds
	}
	if !changed("max-workers") && cfg.MaxWorkers > 0 {
		b.MaxWorkers = cfg.MaxWorkers
	}
	if !changed("no-pin") && cfg.NoPin {
		b.NoPin = true
	}
	if !changed("quiet") && cfg.Quiet {
		b.Log.Quiet = true
	}
}

// Selection is the validated algorithm and kind lists in job-list order.
type Selection struct {
	Algorithms []algo.Algorithm
	Kinds      []api.BenchmarkKind
}

// Validate checks the options against reg. Empty lists select everything.
func (b *Bench) Validate(reg *algo.Registry) (Selection, error) {
	var sel Selection
	if b.DatasetsDir == "" {
		return sel, errors.New("--datasets-dir is required")
	}
	if b.OutputDir == "" {
		return sel, errors.New("--output-dir is required")
	}
	if b.MaxWorkers < 0 {
		return sel, errors.New("--max-workers must be >= 0")
	}

	names := b.Algorithms
	if len(names) == 0 {
		names = reg.Names()
	}
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if seen[n] {
			continue
		}
		seen[n] = true
		a, err := reg.Lookup(n)
		if err != nil {
			return sel, err
		}
		sel.Algorithms = append(sel.Algorithms, a)
	}

	if len(b.Kinds) == 0 {
		sel.Kinds = append(sel.Kinds, api.AllBenchmarkKinds...)
		return sel, nil
	}
	picked := map[api.BenchmarkKind]bool{}
	for _, s := range b.Kinds {
		k, err := api.ParseBenchmarkKind(s)
		if err != nil {
			return sel, err
		}
		picked[k] = true
	}
	// Kinds run in canonical order regardless of flag order.
	for _, k := range api.AllBenchmarkKinds {
		if picked[k] {
			sel.Kinds = append(sel.Kinds, k)
		}
	}
	return sel, nil
}

// Worker holds the flags of the worker role.
type Worker struct {
	DatasetsDir string
	OutputDir   string
	CoreID      int
	Log         Logging
}

// NoCore is the --core-id default: run unpinned.
const NoCore = -1

func RegisterWorker(fs *pflag.FlagSet, w *Worker) {
	fs.StringVar(&w.DatasetsDir, "datasets-dir", "", "root directory of dataset definitions [*]")
	fs.StringVar(&w.OutputDir, "output-dir", "", "directory for graph artifacts [*]")
	fs.IntVar(&w.CoreID, "core-id", NoCore, "core to pin this process to (-1 = unpinned)")
	registerLogging(fs, &w.Log)
}

// Resolve validates the flags and the positional <dataset> <algorithm> <kind>.
func (w *Worker) Resolve(args []string) (worker.Options, error) {
	var o worker.Options
	if len(args) != 3 {
		return o, fmt.Errorf("want <dataset> <algorithm> <kind>, got %d argument(s)", len(args))
	}
	if w.DatasetsDir == "" || w.OutputDir == "" {
		return o, errors.New("--datasets-dir and --output-dir are required")
	}
	if w.CoreID < NoCore {
		return o, fmt.Errorf("invalid --core-id %d", w.CoreID)
	}
	kind, err := api.ParseBenchmarkKind(args[2])
	if err != nil {
		return o, err
	}
	o = worker.Options{
		DatasetsDir: w.DatasetsDir,
		OutputDir:   w.OutputDir,
		Dataset:     args[0],
		Algorithm:   args[1],
		Kind:        kind,
	}
	if w.CoreID != NoCore {
		core := w.CoreID
		o.Core = &core
	}
	return o, nil
}

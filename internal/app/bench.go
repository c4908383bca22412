package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"poabench/internal/affinity"
	"poabench/internal/algo"
	"poabench/internal/cli"
	"poabench/internal/cmdutil"
	"poabench/internal/collector"
	"poabench/internal/config"
	"poabench/internal/dataset"
	"poabench/internal/metrics"
	"poabench/internal/output"
	"poabench/internal/scheduler"
	"poabench/internal/writers"
	"poabench/pkg/api"
)

func newBenchCommand(stdout, stderr io.Writer) *cobra.Command {
	var opts cli.Bench
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run all applicable benchmark jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Config != "" {
				cfg, err := config.Load(opts.Config)
				if err != nil {
					return usageErr(err)
				}
				opts.ApplyConfig(cfg, cmd.Flags().Changed)
			}
			return runBench(&opts, stderr)
		},
	}
	cli.RegisterBench(cmd.Flags(), &opts)
	return cmd
}

func runBench(opts *cli.Bench, stderr io.Writer) error {
	stderr = cmdutil.SyncWriter(stderr)
	reg := algo.Default()
	sel, err := opts.Validate(reg)
	if err != nil {
		return usageErr(err)
	}
	logger, err := cmdutil.NewLogger(stderr, opts.Log.Options())
	if err != nil {
		return usageErr(err)
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	datasets, err := dataset.Discover(opts.DatasetsDir, opts.IncludePrefix)
	if err != nil {
		return runtimeErr(fmt.Errorf("discovering datasets: %w", err))
	}
	jobs := scheduler.BuildJobs(sel.Algorithms, sel.Kinds, datasets, opts.OutputDir, logger)
	if len(jobs) == 0 {
		logger.Warn("no applicable jobs", "datasets", len(datasets))
	}

	available, err := affinity.Allowed()
	if err != nil {
		logger.Warn("reading CPU affinity failed", "err", err)
	}
	reserved, pool := scheduler.NewCorePool(available, opts.MaxWorkers)
	if !opts.NoPin {
		if err := affinity.PinProcess(reserved); err != nil {
			logger.Warn("pinning orchestrator failed", "core", reserved, "err", err)
		}
	}

	exe := opts.WorkerExe
	if exe == "" {
		if exe, err = os.Executable(); err != nil {
			return runtimeErr(err)
		}
	}

	sinks, err := openSinks(opts, runID)
	if err != nil {
		return runtimeErr(err)
	}

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	coll := collector.New(collector.Config{
		SingleItem: sinks.singles,
		WholeSet:   sinks.wholes,
		Archive:    sinks.recorder(),
		Metrics:    m,
		Logger:     logger,
	})
	sched := scheduler.New(scheduler.Config{
		Jobs: jobs,
		Pool: pool,
		Launcher: &scheduler.ExecLauncher{
			Exe:         exe,
			DatasetsDir: opts.DatasetsDir,
			OutputDir:   opts.OutputDir,
			Pin:         !opts.NoPin,
			ExtraArgs:   workerLogArgs(opts.Log),
			Stderr:      stderr,
		},
		Metrics: m,
		Logger:  logger,
	})

	logger.Info("starting run",
		"datasets", len(datasets), "jobs", len(jobs),
		"orchestrator_core", reserved, "pool_size", pool.Size(), "worker_cores", pool.Cores())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if opts.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(gctx, opts.MetricsAddr, promReg, logger) })
	}
	var (
		sum    scheduler.Summary
		runErr error
	)
	g.Go(func() error {
		defer cancel()
		sum, runErr = sched.Run(coll.Handle)
		return nil
	})
	serveErr := g.Wait()

	closeErr := sinks.close()
	logSummary(logger, sum, coll.Counts())

	switch {
	case errors.Is(runErr, scheduler.ErrWorkerFailed):
		_, _ = fmt.Fprintf(stderr, "benchmark terminated early: %v (%d job(s) not started)\n", runErr, sum.NotStarted)
		return runtimeErr(runErr)
	case runErr != nil:
		return runtimeErr(runErr)
	case closeErr != nil:
		return runtimeErr(closeErr)
	case serveErr != nil:
		return runtimeErr(fmt.Errorf("metrics server: %w", serveErr))
	}
	return nil
}

func workerLogArgs(l cli.Logging) []string {
	args := []string{"--log-format", l.Format}
	if l.Quiet {
		args = append(args, "--quiet")
	}
	if l.Verbose {
		args = append(args, "--verbose")
	}
	return args
}

type sinks struct {
	singles *writers.Table[api.SingleItemMeasurement]
	wholes  *writers.Table[api.WholeSetMeasurement]
	archive *writers.Archive
	archF   *os.File
}

func openSinks(opts *cli.Bench, runID string) (*sinks, error) {
	s := &sinks{}
	var err error
	s.singles, err = writers.CreateTable(filepath.Join(opts.OutputDir, output.SingleItemFile),
		output.SingleItemHeader, output.FormatSingleItemRow)
	if err != nil {
		return nil, err
	}
	s.wholes, err = writers.CreateTable(filepath.Join(opts.OutputDir, output.WholeSetFile),
		output.WholeSetHeader, output.FormatWholeSetRow)
	if err != nil {
		_ = s.singles.Close()
		return nil, err
	}
	if opts.Archive != "" {
		if s.archF, err = os.Create(opts.Archive); err != nil {
			_ = s.singles.Close()
			_ = s.wholes.Close()
			return nil, err
		}
		s.archive = writers.StartArchive(s.archF, runID)
	}
	return s, nil
}

// recorder avoids handing the collector a typed nil.
func (s *sinks) recorder() collector.Recorder {
	if s.archive == nil {
		return nil
	}
	return s.archive
}

func (s *sinks) close() error {
	errs := []error{s.singles.Close(), s.wholes.Close()}
	if s.archive != nil {
		errs = append(errs, s.archive.Close(), s.archF.Close())
	}
	return errors.Join(errs...)
}

func logSummary(logger *slog.Logger, sum scheduler.Summary, c collector.Counts) {
	attrs := []any{
		"jobs", sum.Total, "finished", sum.Done, "failed", len(sum.Failed), "not_started", sum.NotStarted,
		"single_item_rows", c.SingleItemRows, "whole_set_rows", c.WholeSetRows,
		"finished_messages", c.Finished, "error_messages", c.Failed,
	}
	if len(sum.Failed) > 0 {
		logger.Error("run ended early", attrs...)
		return
	}
	logger.Info("run complete", attrs...)
}

package app

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"poabench/internal/affinity"
	"poabench/internal/algo"
	"poabench/internal/bench"
	"poabench/internal/cli"
	"poabench/internal/cmdutil"
	"poabench/internal/worker"
)

func newWorkerCommand(stdout, stderr io.Writer) *cobra.Command {
	var opts cli.Worker
	cmd := &cobra.Command{
		Use:    "worker [flags] <dataset> <algorithm> <kind>",
		Short:  "Run a single benchmark job (started by bench)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			wopts, err := opts.Resolve(args)
			if err != nil {
				return usageErr(err)
			}
			logger, err := cmdutil.NewLogger(stderr, opts.Log.Options())
			if err != nil {
				return usageErr(err)
			}
			rt := &worker.Runtime{
				Algorithms: algo.Default(),
				Meter:      bench.NewMeter(bench.NewSystemProbe(), logger),
				Pin:        affinity.PinProcess,
				Logger:     logger,
			}
			if err := rt.Run(context.Background(), wopts, stdout); err != nil {
				logger.Error("worker failed", "job", wopts.Job().String(), "err", err)
				return &exitError{code: exitWorker, err: err}
			}
			return nil
		},
	}
	cli.RegisterWorker(cmd.Flags(), &opts)
	return cmd
}

// internal/app/app.go
package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"poabench/internal/version"
	"poabench/internal/writers"
)

// Exit codes.
const (
	exitOK      = 0
	exitWorker  = 1 // worker role: no Finished was emitted
	exitUsage   = 2
	exitRuntime = 3
)

// exitError carries an exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(err error) error   { return &exitError{code: exitUsage, err: err} }
func runtimeErr(err error) error { return &exitError{code: exitRuntime, err: err} }

// NewRootCommand builds the poabench command tree writing to the given
// streams.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "poabench",
		Short: "Benchmark partial-order aligners on pinned CPU cores",
		Long: `poabench runs every (algorithm, dataset, benchmark kind) job in its own
worker process pinned to a dedicated core and collects runtime and peak
memory measurements into tab-separated tables.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageErr(err) })

	root.AddCommand(newBenchCommand(stdout, stderr), newWorkerCommand(stdout, stderr))
	return root
}

// Run executes argv and returns the process exit code.
func Run(argv []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(argv)
	err := root.Execute()
	if err == nil {
		return exitOK
	}
	if writers.IsBrokenPipe(err) {
		return exitOK
	}

	code := exitUsage
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	if code != exitWorker {
		_, _ = fmt.Fprintln(stderr, "poabench:", err)
	}
	return code
}

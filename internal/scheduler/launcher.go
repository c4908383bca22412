package scheduler

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"poabench/pkg/api"
)

// Worker is a started worker process.
type Worker struct {
	Stdout io.Reader
	// Wait blocks until the process exits; call it only after Stdout is
	// drained.
	Wait func() error
}

// Launcher starts the worker for job on a pool core.
type Launcher interface {
	Launch(job api.Job, core int) (Worker, error)
}

// ExecLauncher runs workers as child processes of Exe.
type ExecLauncher struct {
	Exe         string
	DatasetsDir string
	OutputDir   string
	Pin         bool      // pass --core-id
	ExtraArgs   []string  // worker flags placed before the positionals
	Stderr      io.Writer // worker diagnostics
}

// Args is the worker argv (without the executable).
func (l *ExecLauncher) Args(job api.Job, core int) []string {
	args := []string{"worker", "--datasets-dir", l.DatasetsDir, "--output-dir", l.OutputDir}
	if l.Pin {
		args = append(args, "--core-id", strconv.Itoa(core))
	}
	args = append(args, l.ExtraArgs...)
	return append(args, job.Dataset, job.Algorithm, string(job.Kind))
}

func (l *ExecLauncher) Launch(job api.Job, core int) (Worker, error) {
	cmd := exec.Command(l.Exe, l.Args(job, core)...)
	cmd.Stderr = l.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Worker{}, err
	}
	if err := cmd.Start(); err != nil {
		return Worker{}, fmt.Errorf("starting worker for %s: %w", job, err)
	}
	return Worker{Stdout: stdout, Wait: cmd.Wait}, nil
}

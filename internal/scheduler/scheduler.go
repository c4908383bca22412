// Package scheduler dispatches benchmark jobs to worker processes, one per
// pool core, and runs the loop that consumes their protocol events.
//
// All scheduling state is owned by the goroutine calling Run. Line readers
// only send on the event channel.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"

	"poabench/internal/ipc"
	"poabench/internal/metrics"
	"poabench/pkg/api"
)

var ErrWorkerFailed = errors.New("worker failed")

// Config wires a Scheduler.
type Config struct {
	Jobs     []api.Job
	Pool     *CorePool
	Launcher Launcher
	Metrics  *metrics.Run // optional
	Logger   *slog.Logger
}

// Scheduler is the dispatch state machine: a core is Free or Busy, a job is
// Pending, Running or Done.
type Scheduler struct {
	pool     *CorePool
	pending  []api.Job
	launcher Launcher
	reader   *ipc.Reader
	events   chan ipc.Event
	metrics  *metrics.Run
	log      *slog.Logger

	running   int
	halted    bool
	done      int
	failed    []api.Job
	launchErr error
}

func New(cfg Config) *Scheduler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}
	return &Scheduler{
		pool:     cfg.Pool,
		pending:  append([]api.Job(nil), cfg.Jobs...),
		launcher: cfg.Launcher,
		reader:   &ipc.Reader{Logger: log, Skipped: m.LinesSkipped.Inc},
		events:   make(chan ipc.Event, 64),
		metrics:  m,
		log:      log,
	}
}

// Summary describes a finished run.
type Summary struct {
	Total      int
	Done       int
	Failed     []api.Job
	NotStarted int
}

// Run dispatches jobs and passes every event to handle, in arrival order,
// until no worker is running and nothing more will be dispatched. An error
// from handle halts dispatch like a worker failure does.
func (s *Scheduler) Run(handle func(ipc.Event) error) (Summary, error) {
	total := len(s.pending)
	var handleErr error

	s.dispatch()
	for s.running > 0 {
		ev := <-s.events
		if err := handle(ev); err != nil && handleErr == nil {
			handleErr = err
			s.halt("result handling failed")
		}
		if api.IsTerminal(ev.Msg) {
			s.complete(ev)
		}
	}

	sum := Summary{Total: total, Done: s.done, Failed: s.failed, NotStarted: len(s.pending)}
	switch {
	case handleErr != nil:
		return sum, handleErr
	case s.launchErr != nil:
		return sum, fmt.Errorf("%w: %v", ErrWorkerFailed, s.launchErr)
	case len(s.failed) > 0:
		return sum, fmt.Errorf("%w: %s", ErrWorkerFailed, s.failed[0])
	}
	return sum, nil
}

// dispatch starts pending jobs on free cores, first queued job to first
// free core.
func (s *Scheduler) dispatch() {
	for !s.halted && len(s.pending) > 0 {
		core, ok := s.pool.Admit()
		if !ok {
			return
		}
		job := s.pending[0]
		s.pending = s.pending[1:]
		w, err := s.launcher.Launch(job, core)
		if err != nil {
			s.pool.Release(core)
			s.launchErr = err
			s.failed = append(s.failed, job)
			s.metrics.JobsFailed.Inc()
			s.halt("launch failed")
			break
		}
		s.running++
		s.metrics.JobsDispatched.Inc()
		s.log.Info("dispatched", "job", job.String(), "core", core)
		go s.reader.Forward(ipc.Source{Core: core, Job: job, Stdout: w.Stdout, Wait: w.Wait}, s.events)
	}
	s.updateGauges()
}

func (s *Scheduler) complete(ev ipc.Event) {
	s.pool.Release(ev.Core)
	s.running--
	switch ev.Msg.(type) {
	case api.Error:
		s.failed = append(s.failed, ev.Job)
		s.metrics.JobsFailed.Inc()
		s.halt("worker failed")
	default:
		s.done++
		s.metrics.JobsFinished.Inc()
	}
	s.dispatch()
}

func (s *Scheduler) halt(reason string) {
	if s.halted {
		return
	}
	s.halted = true
	s.log.Error("halting dispatch", "reason", reason, "running", s.running, "pending", len(s.pending))
}

func (s *Scheduler) updateGauges() {
	s.metrics.BusyCores.Set(float64(s.pool.Busy()))
	s.metrics.PendingJobs.Set(float64(len(s.pending)))
}

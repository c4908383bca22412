package scheduler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poabench/internal/ipc"
	"poabench/internal/metrics"
	"poabench/pkg/api"
)

type script struct {
	lines []api.Message
	raw   []string
	err   error
	gate  chan struct{}
}

type launch struct {
	job  api.Job
	core int
}

type fakeLauncher struct {
	t        *testing.T
	scripts  map[string]script
	refuse   map[string]bool
	launches []launch
	inFlight map[int]bool
	maxBusy  int
}

func newFake(t *testing.T) *fakeLauncher {
	return &fakeLauncher{t: t, scripts: map[string]script{}, refuse: map[string]bool{}, inFlight: map[int]bool{}}
}

func (f *fakeLauncher) Launch(job api.Job, core int) (Worker, error) {
	f.launches = append(f.launches, launch{job, core})
	if f.refuse[job.String()] {
		return Worker{}, errors.New("exec format error")
	}
	require.False(f.t, f.inFlight[core], "core %d dispatched twice", core)
	f.inFlight[core] = true
	if len(f.inFlight) > f.maxBusy {
		f.maxBusy = len(f.inFlight)
	}

	sc, ok := f.scripts[job.String()]
	if !ok {
		sc = script{lines: []api.Message{measurement(job), api.Finished{Core: &core}}}
	}
	var b strings.Builder
	for _, m := range sc.lines {
		require.NoError(f.t, api.WriteLine(&b, m))
	}
	for _, l := range sc.raw {
		b.WriteString(l + "\n")
	}
	var r io.Reader = strings.NewReader(b.String())
	if sc.gate != nil {
		r = &gatedReader{gate: sc.gate, r: r}
	}
	return Worker{Stdout: r, Wait: func() error { return sc.err }}, nil
}

// observe is the handle callback half of the fake: it frees cores on
// terminal events.
func (f *fakeLauncher) observe(ev ipc.Event) {
	if api.IsTerminal(ev.Msg) {
		delete(f.inFlight, ev.Core)
	}
}

type gatedReader struct {
	gate <-chan struct{}
	r    io.Reader
}

func (g *gatedReader) Read(p []byte) (int, error) {
	<-g.gate
	return g.r.Read(p)
}

func measurement(job api.Job) api.Message {
	return api.SingleItemMeasurement{Algorithm: job.Algorithm, Dataset: job.Dataset, ItemName: "q"}
}

func makeJobs(n int) []api.Job {
	jobs := make([]api.Job, n)
	for i := range jobs {
		jobs[i] = api.Job{Algorithm: "poa", Dataset: fmt.Sprintf("d%d", i), Kind: api.SingleItem}
	}
	return jobs
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func poolOf(k int) *CorePool {
	avail := make([]int, k+1)
	for i := range avail {
		avail[i] = i
	}
	_, p := NewCorePool(avail, 0)
	return p
}

func TestRunDispatchesMinKNThenDrains(t *testing.T) {
	for n := 0; n <= 6; n++ {
		for k := 1; k <= 4; k++ {
			t.Run(fmt.Sprintf("N=%d/K=%d", n, k), func(t *testing.T) {
				f := newFake(t)
				m := metrics.New(nil)
				s := New(Config{Jobs: makeJobs(n), Pool: poolOf(k), Launcher: f, Metrics: m, Logger: quietLogger()})

				initial := -1
				terminals := 0
				sum, err := s.Run(func(ev ipc.Event) error {
					if initial < 0 {
						initial = len(f.launches)
					}
					f.observe(ev)
					if api.IsTerminal(ev.Msg) {
						terminals++
					}
					return nil
				})
				require.NoError(t, err)
				if n > 0 {
					assert.Equal(t, min(k, n), initial)
				}
				assert.Equal(t, n, terminals)
				assert.Equal(t, n, sum.Done)
				assert.Zero(t, sum.NotStarted)
				assert.LessOrEqual(t, f.maxBusy, k)
				assert.Equal(t, float64(n), testutil.ToFloat64(m.JobsFinished))
				assert.Equal(t, 0.0, testutil.ToFloat64(m.PendingJobs))
				assert.Equal(t, 0.0, testutil.ToFloat64(m.BusyCores))
			})
		}
	}
}

func TestTwoDatasetsTwoAlgorithmsTwoCores(t *testing.T) {
	var jobs []api.Job
	for _, alg := range []string{"poa", "poa-linear"} {
		for _, ds := range []string{"d1", "d2"} {
			jobs = append(jobs, api.Job{Algorithm: alg, Dataset: ds, Kind: api.SingleItem})
		}
	}
	f := newFake(t)
	s := New(Config{Jobs: jobs, Pool: poolOf(2), Launcher: f, Logger: quietLogger()})

	var rows, finished, initial int
	sum, err := s.Run(func(ev ipc.Event) error {
		if rows+finished == 0 {
			initial = len(f.launches)
		}
		f.observe(ev)
		switch ev.Msg.(type) {
		case api.SingleItemMeasurement:
			rows++
		case api.Finished:
			finished++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, initial)
	assert.Equal(t, 4, rows)
	assert.Equal(t, 4, finished)
	assert.Equal(t, 4, sum.Done)

	require.Len(t, f.launches, 4)
	for i, l := range f.launches {
		assert.Equal(t, jobs[i], l.job, "dispatch follows queue order")
		assert.Contains(t, []int{1, 2}, l.core)
	}
	assert.NotEqual(t, f.launches[0].core, f.launches[1].core)
}

func TestWorkerFailureHaltsDispatch(t *testing.T) {
	jobs := makeJobs(3)
	f := newFake(t)
	f.scripts[jobs[0].String()] = script{
		lines: []api.Message{measurement(jobs[0])},
		raw:   []string{"panic: boom"},
		err:   errors.New("exit status 1"),
	}
	m := metrics.New(nil)
	s := New(Config{Jobs: jobs, Pool: poolOf(1), Launcher: f, Metrics: m, Logger: quietLogger()})

	var kinds []api.MessageKind
	sum, err := s.Run(func(ev ipc.Event) error {
		kinds = append(kinds, ev.Msg.Kind())
		return nil
	})
	require.ErrorIs(t, err, ErrWorkerFailed)
	assert.Equal(t, []api.MessageKind{api.KindSingleItem, api.KindError}, kinds)
	assert.Len(t, f.launches, 1)
	assert.Equal(t, []api.Job{jobs[0]}, sum.Failed)
	assert.Equal(t, 2, sum.NotStarted)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LinesSkipped))
}

func TestInFlightWorkersFinishAfterHalt(t *testing.T) {
	jobs := makeJobs(4)
	gate := make(chan struct{})
	core := 2
	f := newFake(t)
	f.scripts[jobs[0].String()] = script{err: errors.New("exit status 1")}
	f.scripts[jobs[1].String()] = script{
		lines: []api.Message{measurement(jobs[1]), api.Finished{Core: &core}},
		gate:  gate,
	}
	s := New(Config{Jobs: jobs, Pool: poolOf(2), Launcher: f, Logger: quietLogger()})

	var kinds []api.MessageKind
	sum, err := s.Run(func(ev ipc.Event) error {
		kinds = append(kinds, ev.Msg.Kind())
		if _, ok := ev.Msg.(api.Error); ok {
			close(gate)
		}
		return nil
	})
	require.ErrorIs(t, err, ErrWorkerFailed)
	assert.Equal(t, []api.MessageKind{api.KindError, api.KindSingleItem, api.KindFinished}, kinds)
	assert.Len(t, f.launches, 2)
	assert.Equal(t, 1, sum.Done)
	assert.Equal(t, 2, sum.NotStarted)
}

func TestLaunchFailure(t *testing.T) {
	jobs := makeJobs(3)
	f := newFake(t)
	f.refuse[jobs[1].String()] = true
	s := New(Config{Jobs: jobs, Pool: poolOf(2), Launcher: f, Logger: quietLogger()})

	sum, err := s.Run(func(ev ipc.Event) error { f.observe(ev); return nil })
	require.ErrorIs(t, err, ErrWorkerFailed)
	assert.Contains(t, err.Error(), "exec format error")
	assert.Len(t, f.launches, 2)
	assert.Equal(t, 1, sum.Done)
	assert.Equal(t, []api.Job{jobs[1]}, sum.Failed)
	assert.Equal(t, 1, sum.NotStarted)
}

func TestHandleErrorHalts(t *testing.T) {
	jobs := makeJobs(3)
	f := newFake(t)
	s := New(Config{Jobs: jobs, Pool: poolOf(1), Launcher: f, Logger: quietLogger()})

	sinkErr := errors.New("disk full")
	_, err := s.Run(func(ev ipc.Event) error {
		if ev.Msg.Kind() == api.KindSingleItem {
			return sinkErr
		}
		return nil
	})
	require.ErrorIs(t, err, sinkErr)
	assert.Len(t, f.launches, 1)
}

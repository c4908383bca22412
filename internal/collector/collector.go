// Package collector routes worker messages to the result tables.
package collector

import (
	"log/slog"

	"poabench/internal/ipc"
	"poabench/internal/metrics"
	"poabench/pkg/api"
)

// Sink receives one row per message and persists buffered rows on Flush.
type Sink[T any] interface {
	Write(T) error
	Flush() error
}

// Recorder receives every event, e.g. an archive.
type Recorder interface {
	Record(ipc.Event) error
}

type Config struct {
	SingleItem Sink[api.SingleItemMeasurement]
	WholeSet   Sink[api.WholeSetMeasurement]
	Archive    Recorder     // optional
	Metrics    *metrics.Run // optional
	Logger     *slog.Logger
}

// Collector is driven by the scheduling loop; it is not safe for concurrent
// use.
type Collector struct {
	cfg      Config
	log      *slog.Logger
	singles  int
	wholes   int
	finished int
	failed   int
}

func New(cfg Config) *Collector {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}
	return &Collector{cfg: cfg, log: log}
}

// Handle routes one event. Both tables are flushed on every terminal
// message so rows up to the last Finished survive an interruption. A
// worker Error is not returned here; the scheduler reports it.
func (c *Collector) Handle(ev ipc.Event) error {
	if c.cfg.Archive != nil {
		if err := c.cfg.Archive.Record(ev); err != nil {
			return err
		}
	}
	switch m := ev.Msg.(type) {
	case api.SingleItemMeasurement:
		c.singles++
		c.observe(ev.Job, m.Measured)
		return c.cfg.SingleItem.Write(m)
	case api.WholeSetMeasurement:
		c.wholes++
		c.observe(ev.Job, m.Measured)
		return c.cfg.WholeSet.Write(m)
	case api.Finished:
		c.finished++
		c.log.Info("job finished", "job", ev.Job.String(), "core", ev.Core)
		return c.Flush()
	case api.Error:
		c.failed++
		c.log.Error("job failed", "job", ev.Job.String(), "core", ev.Core)
		return c.Flush()
	}
	return nil
}

func (c *Collector) observe(job api.Job, m api.Measured) {
	c.cfg.Metrics.MeasurementRuntime.WithLabelValues(job.Algorithm, string(job.Kind)).Observe(m.Runtime)
}

func (c *Collector) Flush() error {
	if err := c.cfg.SingleItem.Flush(); err != nil {
		return err
	}
	return c.cfg.WholeSet.Flush()
}

// Counts of messages seen so far.
type Counts struct {
	SingleItemRows int
	WholeSetRows   int
	Finished       int
	Failed         int
}

func (c *Collector) Counts() Counts {
	return Counts{SingleItemRows: c.singles, WholeSetRows: c.wholes, Finished: c.finished, Failed: c.failed}
}

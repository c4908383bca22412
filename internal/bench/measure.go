// Package bench measures runtime, peak memory, and CPU placement of a unit
// of work.
//
// The peak (high-water) resident memory is reset before each measurement
// where the platform allows it. Without a reset the peak is cumulative over
// the process lifetime, which is why workers run one job per process.
package bench

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"poabench/pkg/api"
)

// ErrMemoryResetUnavailable is returned by Probe.ResetPeak when the platform
// cannot reset the high-water mark. It is never fatal.
var ErrMemoryResetUnavailable = errors.New("memory high-water mark reset unavailable")

// Probe samples process and CPU state. Every method is best effort.
type Probe interface {
	ResetPeak() error
	PeakRSS() (uint64, bool)
	CurrentCPU() (int, bool)
	CPUFreqGHz(cpu int) (float64, bool)
}

// Meter wraps a Probe and remembers whether the degraded-mode warning was
// already logged.
type Meter struct {
	probe  Probe
	logger *slog.Logger
	warn   sync.Once
	now    func() time.Time
}

func NewMeter(p Probe, logger *slog.Logger) *Meter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Meter{probe: p, logger: logger, now: time.Now}
}

func (m *Meter) resetPeak() {
	if err := m.probe.ResetPeak(); err != nil {
		m.warn.Do(func() {
			m.logger.Warn("memory reset unavailable, memory measurements are cumulative", "err", err)
		})
	}
}

// Baseline resets the high-water mark and returns the resulting peak, to be
// used as the baseline for every measurement that follows input loading.
func (m *Meter) Baseline() *uint64 {
	m.resetPeak()
	if v, ok := m.probe.PeakRSS(); ok {
		return &v
	}
	return nil
}

func (m *Meter) sampleCPU() (*int, *float64) {
	cpu, ok := m.probe.CurrentCPU()
	if !ok {
		return nil, nil
	}
	if f, ok := m.probe.CPUFreqGHz(cpu); ok {
		return &cpu, &f
	}
	return &cpu, nil
}

func (m *Meter) stamp() time.Time {
	return m.now().UTC().Truncate(time.Millisecond)
}

// Measure runs work once and returns its measurement together with its
// result. The result stays reachable until the peak has been sampled so that
// freeing it cannot shrink the attributed peak.
//
// Entry CPU placement is sampled before the reset; only work runs between
// the reset and the peak sample.
func Measure[R any](m *Meter, baseline *uint64, work func() R) (api.Measured, R) {
	cpuStart, freqStart := m.sampleCPU()
	timeStart := m.stamp()
	m.resetPeak()
	start := time.Now()

	result := work()

	elapsed := time.Since(start).Seconds()
	timeEnd := m.stamp()
	var peak *uint64
	if v, ok := m.probe.PeakRSS(); ok {
		peak = &v
	}
	cpuEnd, freqEnd := m.sampleCPU()
	runtime.KeepAlive(result)

	meas := api.Measured{
		Runtime:        elapsed,
		MemoryBaseline: baseline,
		MemoryPeak:     peak,
		TimeStart:      timeStart,
		TimeEnd:        timeEnd,
		CPUStart:       cpuStart,
		CPUEnd:         cpuEnd,
		CPUFreqStart:   freqStart,
		CPUFreqEnd:     freqEnd,
	}
	if baseline != nil && peak != nil {
		meas.MemoryDelta = SaturatingSub(*peak, *baseline)
	}
	return meas, result
}

// SaturatingSub returns a-b, or 0 when b > a.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

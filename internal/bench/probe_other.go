//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package bench

type nullProbe struct{}

// NewSystemProbe returns a probe that reports nothing.
func NewSystemProbe() Probe { return nullProbe{} }

func (nullProbe) ResetPeak() error                { return ErrMemoryResetUnavailable }
func (nullProbe) PeakRSS() (uint64, bool)         { return 0, false }
func (nullProbe) CurrentCPU() (int, bool)         { return 0, false }
func (nullProbe) CPUFreqGHz(int) (float64, bool) { return 0, false }

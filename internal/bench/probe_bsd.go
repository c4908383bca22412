//go:build darwin || freebsd || netbsd || openbsd

package bench

import (
	"runtime"

	"golang.org/x/sys/unix"
)

type rusageProbe struct{}

// NewSystemProbe returns the probe for the running platform. Only the
// cumulative ru_maxrss is available here.
func NewSystemProbe() Probe { return rusageProbe{} }

func (rusageProbe) ResetPeak() error { return ErrMemoryResetUnavailable }

func (rusageProbe) PeakRSS() (uint64, bool) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	if runtime.GOOS == "darwin" {
		return uint64(ru.Maxrss), true
	}
	return uint64(ru.Maxrss) * 1024, true
}

func (rusageProbe) CurrentCPU() (int, bool)         { return 0, false }
func (rusageProbe) CPUFreqGHz(int) (float64, bool) { return 0, false }

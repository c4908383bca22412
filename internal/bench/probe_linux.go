//go:build linux

package bench

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unsafe"

	"github.com/prometheus/procfs"
	"github.com/prometheus/procfs/sysfs"
	"golang.org/x/sys/unix"
)

type linuxProbe struct {
	procRoot string
	cpuRoot  string // <sys>/devices/system/cpu
	self     procfs.Proc
	selfOK   bool
}

// NewSystemProbe returns the probe for the running platform.
func NewSystemProbe() Probe {
	return newLinuxProbe(procfs.DefaultMountPoint, sysfs.DefaultMountPoint)
}

func newLinuxProbe(procRoot, sysRoot string) *linuxProbe {
	p := &linuxProbe{
		procRoot: procRoot,
		cpuRoot:  filepath.Join(sysRoot, "devices", "system", "cpu"),
	}
	if fs, err := procfs.NewFS(procRoot); err == nil {
		p.self, err = fs.Self()
		p.selfOK = err == nil
	}
	return p
}

// ResetPeak writes 5 to clear_refs, which resets VmHWM to the current RSS.
func (p *linuxProbe) ResetPeak() error {
	f, err := os.OpenFile(filepath.Join(p.procRoot, "self", "clear_refs"), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMemoryResetUnavailable, err)
	}
	defer f.Close()
	if _, err := f.Write([]byte("5")); err != nil {
		return fmt.Errorf("%w: %v", ErrMemoryResetUnavailable, err)
	}
	return nil
}

// PeakRSS prefers VmHWM, which honors resets; ru_maxrss does not.
func (p *linuxProbe) PeakRSS() (uint64, bool) {
	if p.selfOK {
		if st, err := p.self.NewStatus(); err == nil && st.VmHWM > 0 {
			return st.VmHWM, true
		}
	}
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	return uint64(ru.Maxrss) * 1024, true
}

func (p *linuxProbe) CurrentCPU() (int, bool) {
	var cpu uint32
	if _, _, errno := unix.RawSyscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), 0, 0); errno != 0 {
		return 0, false
	}
	return int(cpu), true
}

// CPUFreqGHz reads scaling_cur_freq (kHz) of a single cpu.
func (p *linuxProbe) CPUFreqGHz(cpu int) (float64, bool) {
	path := filepath.Join(p.cpuRoot, "cpu"+strconv.Itoa(cpu), "cpufreq", "scaling_cur_freq")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	khz, err := strconv.ParseUint(string(bytes.TrimSpace(data)), 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(khz) / 1e6, true
}

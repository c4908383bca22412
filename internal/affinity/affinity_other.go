//go:build !linux

package affinity

import "runtime"

func PinProcess(int) error { return ErrUnsupported }

func Allowed() ([]int, error) {
	out := make([]int, runtime.NumCPU())
	for i := range out {
		out[i] = i
	}
	return out, nil
}

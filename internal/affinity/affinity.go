// Package affinity binds processes to logical cores.
package affinity

import "errors"

var ErrUnsupported = errors.New("affinity: core pinning not supported on this platform")

// internal/jsonlutil/jsonlutil.go
package jsonlutil

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
)

// Pooled 64 KiB buffered writers shared by JSONL writers.
var bwPool = sync.Pool{
	New: func() any {
		return bufio.NewWriterSize(io.Discard, 64<<10)
	},
}

// Start spins up a JSONL encoder goroutine for values of type T.
//   - wire: converts one value to what gets encoded on its line
//   - isBroken: recognizer for broken/closed pipe errors to suppress them
//
// After the first error the goroutine keeps draining the channel so senders
// never block; the error is reported once the channel is closed.
func Start[T any](out io.Writer, bufSize int, wire func(T) (any, error), isBroken func(error) bool) (chan<- T, <-chan error) {
	if bufSize <= 0 {
		bufSize = 64
	}
	in := make(chan T, bufSize)
	done := make(chan error, 1)

	go func() {
		bw := bwPool.Get().(*bufio.Writer)
		bw.Reset(out)
		defer func() {
			bw.Reset(io.Discard)
			bwPool.Put(bw)
		}()

		enc := json.NewEncoder(bw)
		var firstErr error
		for v := range in {
			if firstErr != nil {
				continue
			}
			w, err := wire(v)
			if err == nil {
				err = enc.Encode(w)
			}
			if err != nil && !isBroken(err) {
				firstErr = err
			}
		}
		if firstErr == nil {
			if err := bw.Flush(); err != nil && !isBroken(err) {
				firstErr = err
			}
		}
		done <- firstErr
	}()

	return in, done
}

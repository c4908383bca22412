// internal/writers/archive.go
package writers

import (
	"encoding/json"
	"io"
	"sync"

	"poabench/internal/ipc"
	"poabench/internal/jsonlutil"
	"poabench/pkg/api"
)

// ArchiveEntry is one archived protocol message with its origin.
type ArchiveEntry struct {
	RunID   string          `json:"run_id"`
	Core    int             `json:"core"`
	Job     api.Job         `json:"job"`
	Message json.RawMessage `json:"message"`
}

// Archive streams every event it records as a JSON line.
type Archive struct {
	in   chan<- ipc.Event
	done <-chan error
	out  *stickyWriter
}

func StartArchive(out io.Writer, runID string) *Archive {
	sw := &stickyWriter{w: out}
	in, done := jsonlutil.Start[ipc.Event](sw, 256, func(ev ipc.Event) (any, error) {
		raw, err := api.Marshal(ev.Msg)
		if err != nil {
			return nil, err
		}
		return ArchiveEntry{RunID: runID, Core: ev.Core, Job: ev.Job, Message: raw}, nil
	}, IsBrokenPipe)
	return &Archive{in: in, done: done, out: sw}
}

// Record queues ev. It fails once an earlier buffered write has failed, so
// the caller learns about a dead archive while the run is still going.
func (a *Archive) Record(ev ipc.Event) error {
	if err := a.out.Err(); err != nil {
		return err
	}
	a.in <- ev
	return nil
}

// Close drains pending entries and reports the first write error.
func (a *Archive) Close() error {
	close(a.in)
	return <-a.done
}

// stickyWriter remembers the first write error that is not a broken pipe.
type stickyWriter struct {
	w   io.Writer
	mu  sync.Mutex
	err error
}

func (s *stickyWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil && !IsBrokenPipe(err) {
		s.mu.Lock()
		if s.err == nil {
			s.err = err
		}
		s.mu.Unlock()
	}
	return n, err
}

func (s *stickyWriter) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

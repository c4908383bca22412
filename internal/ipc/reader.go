// Package ipc turns a worker's output stream into protocol events.
package ipc

import (
	"bufio"
	"io"
	"log/slog"

	"poabench/pkg/api"
)

// MaxLineBytes bounds one protocol line.
const MaxLineBytes = 16 << 20

// Event is a message attributed to the worker occupying a pool core.
type Event struct {
	Core int
	Job  api.Job
	Msg  api.Message
}

// Source is one running worker: its stdout and a wait for its exit status.
type Source struct {
	Core   int
	Job    api.Job
	Stdout io.Reader
	Wait   func() error
}

// Reader forwards decoded lines. Skipped, when set, is called once per
// line that did not decode.
type Reader struct {
	Logger  *slog.Logger
	Skipped func()
}

// Forward reads src until EOF, waits for the process, and sends every
// decoded message to out. Terminal messages are held back: exactly one is
// sent last, Finished when the worker reported it and exited cleanly, Error
// otherwise.
func (r *Reader) Forward(src Source, out chan<- Event) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("job", src.Job.String(), "core", src.Core)

	var (
		finished *api.Finished
		failed   bool
	)
	sc := bufio.NewScanner(src.Stdout)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := api.Unmarshal(line)
		if err != nil {
			log.Warn("skipping undecodable worker line", "err", err, "line", truncate(line, 200))
			if r.Skipped != nil {
				r.Skipped()
			}
			continue
		}
		switch m := msg.(type) {
		case api.Finished:
			if finished != nil {
				log.Warn("duplicate finished message ignored")
				continue
			}
			finished = &m
		case api.Error:
			failed = true
		default:
			out <- Event{Core: src.Core, Job: src.Job, Msg: msg}
		}
	}
	if err := sc.Err(); err != nil {
		log.Error("reading worker output", "err", err)
		failed = true
		_, _ = io.Copy(io.Discard, src.Stdout)
	}

	waitErr := src.Wait()
	switch {
	case waitErr != nil:
		log.Error("worker exited abnormally", "err", waitErr)
	case finished == nil:
		log.Error("worker exited without a finished message")
	case failed:
		log.Error("worker reported an error")
	default:
		out <- Event{Core: src.Core, Job: src.Job, Msg: *finished}
		return
	}
	out <- Event{Core: src.Core, Job: src.Job, Msg: api.Error{}}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

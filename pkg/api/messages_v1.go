// pkg/api/messages_v1.go
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Wire format: one JSON object per line, "kind" first. Keep field names and
// types stable; new fields must be optional.

// MessageKind tags a protocol line.
type MessageKind string

const (
	KindSingleItem MessageKind = "single_item"
	KindWholeSet   MessageKind = "whole_set"
	KindFinished   MessageKind = "finished"
	KindError      MessageKind = "error"
)

var ErrUnknownKind = errors.New("api: unknown message kind")

// Message is one of SingleItemMeasurement, WholeSetMeasurement, Finished, Error.
type Message interface {
	Kind() MessageKind
}

// Measured is the outcome of measuring one unit of work.
type Measured struct {
	Runtime        float64   `json:"runtime"` // seconds
	MemoryBaseline *uint64   `json:"memory_baseline"`
	MemoryPeak     *uint64   `json:"memory_peak"`
	MemoryDelta    uint64    `json:"memory_delta"`
	TimeStart      time.Time `json:"time_start"`
	TimeEnd        time.Time `json:"time_end"`
	CPUStart       *int      `json:"cpu_start"`
	CPUEnd         *int      `json:"cpu_end"`
	CPUFreqStart   *float64  `json:"cpu_freq_start"` // GHz
	CPUFreqEnd     *float64  `json:"cpu_freq_end"`
}

type SingleItemMeasurement struct {
	Algorithm  string   `json:"algorithm"`
	Dataset    string   `json:"dataset"`
	Score      uint64   `json:"score"`
	GraphNodes uint64   `json:"graph_nodes"`
	GraphEdges uint64   `json:"graph_edges"`
	ItemName   string   `json:"item_name"`
	ItemLength uint64   `json:"item_length"`
	Visited    uint64   `json:"visited"`
	Measured   Measured `json:"measured"`
}

type WholeSetMeasurement struct {
	Algorithm string   `json:"algorithm"`
	Dataset   string   `json:"dataset"`
	Measured  Measured `json:"measured"`
}

// Finished is the last line of a successful worker. Core is the core the
// worker was pinned to, nil when it ran unpinned.
type Finished struct {
	Core *int `json:"core"`
}

// Error reports a failed worker. It carries no payload.
type Error struct{}

func (SingleItemMeasurement) Kind() MessageKind { return KindSingleItem }
func (WholeSetMeasurement) Kind() MessageKind   { return KindWholeSet }
func (Finished) Kind() MessageKind              { return KindFinished }
func (Error) Kind() MessageKind                 { return KindError }

// IsTerminal reports whether m ends a worker's contribution.
func IsTerminal(m Message) bool {
	k := m.Kind()
	return k == KindFinished || k == KindError
}

// Marshal encodes m as a single JSON object without a trailing newline.
func Marshal(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(body) + 24)
	buf.WriteString(`{"kind":`)
	kind, _ := json.Marshal(m.Kind())
	buf.Write(kind)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes one protocol line.
func Unmarshal(line []byte) (Message, error) {
	var head struct {
		Kind MessageKind `json:"kind"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return nil, err
	}
	var (
		m   Message
		err error
	)
	switch head.Kind {
	case KindSingleItem:
		var v SingleItemMeasurement
		err = json.Unmarshal(line, &v)
		m = v
	case KindWholeSet:
		var v WholeSetMeasurement
		err = json.Unmarshal(line, &v)
		m = v
	case KindFinished:
		var v Finished
		err = json.Unmarshal(line, &v)
		m = v
	case KindError:
		m = Error{}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, head.Kind)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// WriteLine writes m followed by a newline in a single Write call so lines
// from one producer never interleave.
func WriteLine(w io.Writer, m Message) error {
	b, err := Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// internal/fasta/reader.go
package fasta

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
)

// Record is one FASTA entry. Name is the header up to the first blank.
type Record struct {
	Name string
	Seq  []byte
}

// Len returns the sequence length in bases.
func (r Record) Len() int { return len(r.Seq) }

// Scan parses FASTA from r and calls emit once per record, in file order.
// Sequence lines are concatenated and upper-cased. Returning an error from
// emit stops the scan and is returned as-is.
func Scan(ctx context.Context, r io.Reader, emit func(Record) error) error {
	sc := bufio.NewScanner(r)
	const maxLine = 64 * 1024 * 1024 // single-line genomes
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		name    string
		started bool
		seq     = make([]byte, 0, 1<<16)
	)
	flush := func() error {
		if !started {
			return nil
		}
		return emit(Record{Name: name, Seq: bytes.Clone(seq)})
	}

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			name = parseHeaderName(line[1:])
			started = true
			seq = seq[:0]
			continue
		}
		if !started {
			return fmt.Errorf("fasta: sequence data before first header")
		}
		seq = append(seq, bytes.ToUpper(line)...)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("fasta scan: %w", err)
	}
	return flush()
}

// ReadFile loads every record of a (possibly gzipped) FASTA file.
func ReadFile(ctx context.Context, path string) ([]Record, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var out []Record
	err = Scan(ctx, rc, func(r Record) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func parseHeaderName(hdr []byte) string {
	hdr = bytes.TrimSpace(hdr)
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i])
	}
	return string(hdr)
}

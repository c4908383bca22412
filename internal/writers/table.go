package writers

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

// Table is a buffered TSV sink. Rows become durable only on Flush.
type Table[T any] struct {
	bw     *bufio.Writer
	closer io.Closer
	format func(T) string
}

// NewTable writes header immediately so an empty table is still well-formed.
func NewTable[T any](w io.Writer, header string, format func(T) string) (*Table[T], error) {
	t := &Table[T]{bw: bufio.NewWriterSize(w, 64<<10), format: format}
	if _, err := t.bw.WriteString(header + "\n"); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTable creates (truncating) the file at path.
func CreateTable[T any](path, header string, format func(T) string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	t, err := NewTable(f, header, format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	t.closer = f
	return t, nil
}

func (t *Table[T]) Write(v T) error {
	if _, err := t.bw.WriteString(t.format(v)); err != nil {
		return err
	}
	return t.bw.WriteByte('\n')
}

func (t *Table[T]) Flush() error { return t.bw.Flush() }

// Close flushes and closes the underlying file, if the table owns one.
func (t *Table[T]) Close() error {
	err := t.bw.Flush()
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
	}
	if IsBrokenPipe(err) {
		return nil
	}
	return err
}

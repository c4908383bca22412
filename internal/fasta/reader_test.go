// internal/fasta/reader_test.go
package fasta

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const plain = `>seq1 first record
ACGT
acgt
>seq2
NNnn
`

func writeGz(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	fh, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gw := gzip.NewWriter(fh)
	if _, err := gw.Write([]byte(data)); err != nil {
		t.Fatalf("write gz: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	if err := fh.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestReadFileGzip(t *testing.T) {
	recs, err := ReadFile(context.Background(), writeGz(t, "x.fa.gz", plain))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
	if recs[0].Name != "seq1" || string(recs[0].Seq) != "ACGTACGT" {
		t.Fatalf("bad first record: %+v", recs[0])
	}
	if recs[1].Len() != 4 || string(recs[1].Seq) != "NNNN" {
		t.Fatalf("bad second record: %+v", recs[1])
	}
}

// Gzip is detected by magic number even without the .gz suffix.
func TestReadFileGzipMagicWithoutSuffix(t *testing.T) {
	recs, err := ReadFile(context.Background(), writeGz(t, "x.fna", plain))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
}

func TestReadFilePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.fa")
	if err := os.WriteFile(path, []byte(plain), 0o644); err != nil {
		t.Fatal(err)
	}
	recs, err := ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
}

func TestScanRejectsHeaderlessData(t *testing.T) {
	err := Scan(context.Background(), strings.NewReader("ACGT\n>a\nAC\n"), func(Record) error { return nil })
	if err == nil {
		t.Fatalf("expected error for sequence before header")
	}
}

func TestScanEmptyRecord(t *testing.T) {
	var got []Record
	err := Scan(context.Background(), strings.NewReader(">empty\n>b\nAC\n"), func(r Record) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 || got[0].Len() != 0 || got[1].Name != "b" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestScanCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Scan(ctx, strings.NewReader(plain), func(Record) error { return nil })
	if err != context.Canceled {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

// A .gz name alone does not force decompression.
func TestReadFilePlainWithGzSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.fa.gz")
	if err := os.WriteFile(path, []byte(plain), 0o644); err != nil {
		t.Fatal(err)
	}
	recs, err := ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
}

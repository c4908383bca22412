package worker

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poabench/internal/algo"
	"poabench/internal/bench"
	"poabench/internal/fasta"
	"poabench/pkg/api"
)

type stubProbe struct{ peak uint64 }

func (p *stubProbe) PeakRSS() (uint64, bool) {
	p.peak += 1024
	return p.peak, true
}

func (p *stubProbe) ResetPeak() error               { return nil }
func (p *stubProbe) CurrentCPU() (int, bool)        { return 1, true }
func (p *stubProbe) CPUFreqGHz(int) (float64, bool) { return 2.5, true }

const meta = `
[graph_set]
fname = "graph.fa"

[align_set]
fname = "align.fa"
`

func setup(t *testing.T) (datasets, out string) {
	t.Helper()
	datasets, out = t.TempDir(), t.TempDir()
	dir := filepath.Join(datasets, "grp", "d1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	files := map[string]string{
		"meta.toml": meta,
		"graph.fa":  ">g1\nACGTACGT\n>g2\nACGTTCGT\n",
		"align.fa":  ">q1\nACGTACGT\n>q2\nACGAACGT\n>q3\nACG\n",
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
	return datasets, out
}

func newRuntime(pin func(int) error) *Runtime {
	return &Runtime{
		Algorithms: algo.Default(),
		Meter:      bench.NewMeter(&stubProbe{}, nil),
		Pin:        pin,
	}
}

func decodeAll(t *testing.T, b []byte) []api.Message {
	t.Helper()
	var msgs []api.Message
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		m, err := api.Unmarshal(sc.Bytes())
		require.NoError(t, err, sc.Text())
		msgs = append(msgs, m)
	}
	return msgs
}

func TestSingleItemStreamsOneLinePerItem(t *testing.T) {
	datasets, out := setup(t)
	core := 3
	var pinned []int
	rt := newRuntime(func(c int) error { pinned = append(pinned, c); return nil })

	var buf bytes.Buffer
	err := rt.Run(context.Background(), Options{
		DatasetsDir: datasets, OutputDir: out, Core: &core,
		Dataset: "grp/d1", Algorithm: "poa", Kind: api.SingleItem,
	}, &buf)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, pinned)

	msgs := decodeAll(t, buf.Bytes())
	require.Len(t, msgs, 4)
	names := []string{"q1", "q2", "q3"}
	for i, m := range msgs[:3] {
		si, ok := m.(api.SingleItemMeasurement)
		require.True(t, ok)
		assert.Equal(t, names[i], si.ItemName)
		assert.Equal(t, "grp/d1", si.Dataset)
		assert.Equal(t, "poa", si.Algorithm)
		assert.Equal(t, uint64(9), si.GraphNodes)
		require.NotNil(t, si.Measured.MemoryBaseline)
		require.NotNil(t, si.Measured.MemoryPeak)
		assert.Greater(t, *si.Measured.MemoryPeak, *si.Measured.MemoryBaseline)
	}
	assert.Equal(t, uint64(0), msgs[0].(api.SingleItemMeasurement).Score)
	assert.Equal(t, uint64(3), msgs[2].(api.SingleItemMeasurement).ItemLength)

	fin, ok := msgs[3].(api.Finished)
	require.True(t, ok)
	require.NotNil(t, fin.Core)
	assert.Equal(t, 3, *fin.Core)
}

func TestUnpinnedRunReportsNoCore(t *testing.T) {
	datasets, out := setup(t)
	rt := newRuntime(func(int) error { t.Fatal("pin called without a core"); return nil })

	var buf bytes.Buffer
	require.NoError(t, rt.Run(context.Background(), Options{
		DatasetsDir: datasets, OutputDir: out,
		Dataset: "grp/d1", Algorithm: "poa-linear", Kind: api.SingleItem,
	}, &buf))
	msgs := decodeAll(t, buf.Bytes())
	assert.Equal(t, api.Finished{}, msgs[len(msgs)-1])
}

func TestPinFailureIsNotFatal(t *testing.T) {
	datasets, out := setup(t)
	core := 1
	rt := newRuntime(func(int) error { return errors.New("EPERM") })

	var buf bytes.Buffer
	require.NoError(t, rt.Run(context.Background(), Options{
		DatasetsDir: datasets, OutputDir: out, Core: &core,
		Dataset: "grp/d1", Algorithm: "poa", Kind: api.SingleItem,
	}, &buf))
	msgs := decodeAll(t, buf.Bytes())
	assert.Equal(t, api.KindFinished, msgs[len(msgs)-1].Kind())
}

func TestWholeSetFallsBackAndWritesGraph(t *testing.T) {
	datasets, out := setup(t)
	rt := newRuntime(nil)

	var buf bytes.Buffer
	require.NoError(t, rt.Run(context.Background(), Options{
		DatasetsDir: datasets, OutputDir: out,
		Dataset: "grp/d1", Algorithm: "poa", Kind: api.WholeSet,
	}, &buf))

	msgs := decodeAll(t, buf.Bytes())
	require.Len(t, msgs, 2)
	ws, ok := msgs[0].(api.WholeSetMeasurement)
	require.True(t, ok)
	assert.Equal(t, "grp/d1", ws.Dataset)
	assert.GreaterOrEqual(t, ws.Measured.Runtime, 0.0)

	dot, err := os.ReadFile(filepath.Join(out, "grp", "d1", "full_msa.poa.dot"))
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph poa {")
}

func TestWholeSetUsesCombinedSet(t *testing.T) {
	datasets, out := setup(t)
	dir := filepath.Join(out, "grp", "d1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	f, err := os.Create(filepath.Join(dir, "all_seq.sorted.fna.gz"))
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(">a\nAAAA\n>b\nAAAA\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	var buf bytes.Buffer
	require.NoError(t, newRuntime(nil).Run(context.Background(), Options{
		DatasetsDir: datasets, OutputDir: out,
		Dataset: "grp/d1", Algorithm: "poa-linear", Kind: api.WholeSet,
	}, &buf))

	dot, err := os.ReadFile(filepath.Join(dir, "full_msa.poa-linear.dot"))
	require.NoError(t, err)
	assert.Contains(t, string(dot), `n0 -> n1 [label="2"];`)
	assert.NotContains(t, string(dot), `label="C"`)
}

func TestFailuresEmitNoFinished(t *testing.T) {
	datasets, out := setup(t)
	cases := []struct {
		name string
		opts Options
	}{
		{"unknown algorithm", Options{Dataset: "grp/d1", Algorithm: "nope", Kind: api.SingleItem}},
		{"missing dataset", Options{Dataset: "grp/missing", Algorithm: "poa", Kind: api.SingleItem}},
		{"unknown kind", Options{Dataset: "grp/d1", Algorithm: "poa", Kind: "bogus"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.DatasetsDir, tc.opts.OutputDir = datasets, out
			var buf bytes.Buffer
			require.Error(t, newRuntime(nil).Run(context.Background(), tc.opts, &buf))
			for _, m := range decodeAll(t, buf.Bytes()) {
				assert.False(t, api.IsTerminal(m))
			}
		})
	}
}

func TestFailureMidStreamKeepsEarlierLines(t *testing.T) {
	datasets, out := setup(t)
	align := filepath.Join(datasets, "grp", "d1", "align.fa")
	require.NoError(t, os.WriteFile(align, []byte(">q1\nACGT\n>q2\nACGT\n"), 0o644))

	rt := newRuntime(nil)
	rt.Algorithms = algo.NewRegistry(&failingAlg{Algorithm: algo.NewAffinePOA(), failAt: 2})

	var buf bytes.Buffer
	require.Error(t, rt.Run(context.Background(), Options{
		DatasetsDir: datasets, OutputDir: out,
		Dataset: "grp/d1", Algorithm: "poa", Kind: api.SingleItem,
	}, &buf))
	msgs := decodeAll(t, buf.Bytes())
	require.Len(t, msgs, 1)
	assert.Equal(t, api.KindSingleItem, msgs[0].Kind())
}

type failingAlg struct {
	algo.Algorithm
	calls, failAt int
}

func (f *failingAlg) AlignOne(g algo.Graph, rec fasta.Record) (algo.Result, error) {
	f.calls++
	if f.calls == f.failAt {
		return algo.Result{}, errors.New("boom")
	}
	return f.Algorithm.AlignOne(g, rec)
}

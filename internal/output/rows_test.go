package output

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"poabench/pkg/api"
)

func u64(v uint64) *uint64 { return &v }

func measured() api.Measured {
	start := time.Date(2024, 5, 1, 12, 0, 0, 123_000_000, time.UTC)
	return api.Measured{
		Runtime:        0.25,
		MemoryBaseline: u64(1000),
		MemoryPeak:     u64(1500),
		MemoryDelta:    500,
		TimeStart:      start,
		TimeEnd:        start.Add(250 * time.Millisecond),
	}
}

func TestFormatSingleItemRow(t *testing.T) {
	row := FormatSingleItemRow(api.SingleItemMeasurement{
		Algorithm: "poa", Dataset: "grp/d1", Score: 12, GraphNodes: 40, GraphEdges: 44,
		ItemName: "seq\t1", ItemLength: 38, Visited: 5000, Measured: measured(),
	})
	want := "grp/d1\tpoa\t40\t44\tseq 1\t38\t12\t5000\t0.25\t1000\t1500\t500\t2024-05-01T12:00:00.123Z\t2024-05-01T12:00:00.373Z"
	assert.Equal(t, want, row)
	assert.Equal(t, strings.Count(SingleItemHeader, "\t"), strings.Count(row, "\t"))
}

func TestFormatWholeSetRowUnknownMemory(t *testing.T) {
	m := measured()
	m.MemoryBaseline, m.MemoryPeak, m.MemoryDelta = nil, nil, 0
	row := FormatWholeSetRow(api.WholeSetMeasurement{Algorithm: "poa-linear", Dataset: "d", Measured: m})
	assert.Equal(t, "d\tpoa-linear\t0.25\t\t\t0\t2024-05-01T12:00:00.123Z\t2024-05-01T12:00:00.373Z", row)
	assert.Equal(t, strings.Count(WholeSetHeader, "\t"), strings.Count(row, "\t"))
}

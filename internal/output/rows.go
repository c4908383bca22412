// internal/output/rows.go
package output

import (
	"strconv"
	"strings"

	"poabench/pkg/api"
)

// OptUint renders an unknown value as an empty cell.
func OptUint(v *uint64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(*v, 10)
}

func measuredCells(m api.Measured) []string {
	return []string{
		strconv.FormatFloat(m.Runtime, 'f', -1, 64),
		OptUint(m.MemoryBaseline),
		OptUint(m.MemoryPeak),
		strconv.FormatUint(m.MemoryDelta, 10),
		m.TimeStart.UTC().Format(TimeLayout),
		m.TimeEnd.UTC().Format(TimeLayout),
	}
}

// cell keeps free text from breaking the row.
func cell(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}

// FormatSingleItemRow returns one row of the single-item table (no trailing newline).
func FormatSingleItemRow(m api.SingleItemMeasurement) string {
	cells := []string{
		cell(m.Dataset), cell(m.Algorithm),
		strconv.FormatUint(m.GraphNodes, 10), strconv.FormatUint(m.GraphEdges, 10),
		cell(m.ItemName), strconv.FormatUint(m.ItemLength, 10),
		strconv.FormatUint(m.Score, 10), strconv.FormatUint(m.Visited, 10),
	}
	return strings.Join(append(cells, measuredCells(m.Measured)...), "\t")
}

// FormatWholeSetRow returns one row of the whole-set table (no trailing newline).
func FormatWholeSetRow(m api.WholeSetMeasurement) string {
	cells := []string{cell(m.Dataset), cell(m.Algorithm)}
	return strings.Join(append(cells, measuredCells(m.Measured)...), "\t")
}

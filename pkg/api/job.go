// pkg/api/job.go
package api

import "fmt"

// BenchmarkKind selects between aligning items one at a time against a fixed
// graph and building the graph from the whole sequence set.
type BenchmarkKind string

const (
	SingleItem BenchmarkKind = "single-item"
	WholeSet   BenchmarkKind = "whole-set"
)

// AllBenchmarkKinds in job-list order.
var AllBenchmarkKinds = []BenchmarkKind{SingleItem, WholeSet}

// ParseBenchmarkKind accepts the canonical names plus the historical
// single-sequence / full-msa spellings.
func ParseBenchmarkKind(s string) (BenchmarkKind, error) {
	switch s {
	case string(SingleItem), "single-sequence", "single_item":
		return SingleItem, nil
	case string(WholeSet), "full-msa", "whole_set":
		return WholeSet, nil
	}
	return "", fmt.Errorf("unknown benchmark kind %q (want %s or %s)", s, SingleItem, WholeSet)
}

// Job is one (algorithm, dataset, benchmark kind) unit of work.
type Job struct {
	Algorithm string        `json:"algorithm"`
	Dataset   string        `json:"dataset"`
	Kind      BenchmarkKind `json:"benchmark"`
}

func (j Job) String() string {
	return fmt.Sprintf("%s/%s/%s", j.Algorithm, j.Kind, j.Dataset)
}

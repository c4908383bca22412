package scheduler

import (
	"log/slog"
	"os"

	"poabench/internal/algo"
	"poabench/internal/dataset"
	"poabench/pkg/api"
)

// BuildJobs lists the applicable jobs: algorithm outer, then kind, then
// dataset in the given order. Single-item jobs need a graph set or a
// prebuilt graph MSA under outDir.
func BuildJobs(algs []algo.Algorithm, kinds []api.BenchmarkKind, datasets []dataset.Dataset, outDir string, log *slog.Logger) []api.Job {
	if log == nil {
		log = slog.Default()
	}
	var jobs []api.Job
	for _, a := range algs {
		for _, k := range kinds {
			if !a.Supports(k) {
				log.Debug("algorithm does not support kind", "algorithm", a.Name(), "kind", string(k))
				continue
			}
			for _, ds := range datasets {
				if k == api.SingleItem && !hasGraphInput(ds, outDir) {
					log.Debug("skipping dataset without graph input", "algorithm", a.Name(), "dataset", ds.ID)
					continue
				}
				jobs = append(jobs, api.Job{Algorithm: a.Name(), Dataset: ds.ID, Kind: k})
			}
		}
	}
	return jobs
}

func hasGraphInput(ds dataset.Dataset, outDir string) bool {
	if ds.HasGraphSet() {
		return true
	}
	_, err := os.Stat(ds.GraphMSAPath(outDir))
	return err == nil
}

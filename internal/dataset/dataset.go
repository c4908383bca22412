// Package dataset discovers benchmark datasets and knows where their inputs
// and derived artifacts live on disk.
package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// MetaFile is the per-dataset configuration file read by Load.
const MetaFile = "meta.toml"

// Derived artifact names under <output>/<dataset id>/.
const (
	GraphMSAFile       = "graph.msa.fasta"
	CombinedSortedFile = "all_seq.sorted.fna.gz"
)

var ErrNoAlignSet = errors.New("dataset: align_set.fname is required")

// SequenceSet describes one FASTA file of a dataset plus optional statistics.
type SequenceSet struct {
	Fname             string         `toml:"fname"`
	NumSeqs           *int           `toml:"num_seqs"`
	AvgSeqLen         *float64       `toml:"avg_seq_len"`
	AvgPairwiseDist   *float64       `toml:"avg_pairwise_dist"`
	AvgMinDistToGraph *float64       `toml:"avg_min_dist_to_graph"`
	Species           map[string]any `toml:"species"`
}

// Config mirrors a dataset's TOML file.
type Config struct {
	ClusteringMaxDist *float64     `toml:"clustering_max_dist"`
	IsSorted          *bool        `toml:"is_sorted"`
	GraphSet          *SequenceSet `toml:"graph_set"`
	AlignSet          SequenceSet  `toml:"align_set"`
}

// Dataset couples an id (the directory relative to the datasets root) with
// its directory and parsed config.
type Dataset struct {
	ID     string
	Dir    string
	Config Config
}

// HasGraphSet reports whether graph construction sequences are configured.
func (d Dataset) HasGraphSet() bool { return d.Config.GraphSet != nil && d.Config.GraphSet.Fname != "" }

// GraphSequencesPath is empty when the dataset has no graph set.
func (d Dataset) GraphSequencesPath() string {
	if !d.HasGraphSet() {
		return ""
	}
	return filepath.Join(d.Dir, d.Config.GraphSet.Fname)
}

func (d Dataset) AlignSequencesPath() string {
	return filepath.Join(d.Dir, d.Config.AlignSet.Fname)
}

// OutputDir is the per-dataset directory under the run output root.
func (d Dataset) OutputDir(outRoot string) string {
	return filepath.Join(outRoot, filepath.FromSlash(d.ID))
}

func (d Dataset) GraphMSAPath(outRoot string) string {
	return filepath.Join(d.OutputDir(outRoot), GraphMSAFile)
}

func (d Dataset) CombinedSortedPath(outRoot string) string {
	return filepath.Join(d.OutputDir(outRoot), CombinedSortedFile)
}

// WholeSetGraphPath is where the whole-set benchmark writes its graph.
func (d Dataset) WholeSetGraphPath(outRoot, algorithm string) string {
	return filepath.Join(d.OutputDir(outRoot), "full_msa."+algorithm+".dot")
}

func parseConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.AlignSet.Fname == "" {
		return Config{}, fmt.Errorf("%s: %w", path, ErrNoAlignSet)
	}
	return cfg, nil
}

// Discover walks root; every directory holding a meta.toml is one dataset. Datasets are
// returned sorted by id, optionally restricted to ids with includePrefix.
func Discover(root, includePrefix string) ([]Dataset, error) {
	var out []Dataset
	err := filepath.WalkDir(root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() || de.Name() != MetaFile {
			return nil
		}
		dir := filepath.Dir(path)
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(rel)
		if includePrefix != "" && !strings.HasPrefix(id, includePrefix) {
			return nil
		}
		cfg, err := parseConfig(path)
		if err != nil {
			return err
		}
		out = append(out, Dataset{ID: id, Dir: dir, Config: cfg})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Load reads a single dataset by id.
func Load(root, id string) (Dataset, error) {
	dir := filepath.Join(root, filepath.FromSlash(id))
	cfg, err := parseConfig(filepath.Join(dir, MetaFile))
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{ID: id, Dir: dir, Config: cfg}, nil
}

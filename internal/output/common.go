package output

// Table headers. Keep these as the single source of truth; row formatters
// must emit the same columns in the same order.
const (
	SingleItemHeader = "dataset\talgorithm\tgraph_nodes\tgraph_edges\titem_name\titem_length\tscore\tvisited\truntime\tmemory_baseline\tmemory_peak\tmemory_delta\ttime_start\ttime_end"
	WholeSetHeader   = "dataset\talgorithm\truntime\tmemory_baseline\tmemory_peak\tmemory_delta\ttime_start\ttime_end"
)

// Table file names under the run output directory.
const (
	SingleItemFile = "results.single_item.tsv"
	WholeSetFile   = "results.whole_set.tsv"
)

// TimeLayout renders measurement timestamps (UTC, millisecond precision).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

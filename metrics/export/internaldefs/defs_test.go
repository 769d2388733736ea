package internaldefs

import (
	"strings"
	"testing"

	swad "github.com/MrEthical07/swad"
)

func TestCounterDefsCoverSnapshot(t *testing.T) {
	snap := swad.NewMetrics(swad.MetricsConfig{Enabled: true}).Snapshot()
	seen := make(map[swad.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "swad_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q does not follow swad_*_total", def.Name)
		}
		if names[def.Name] {
			t.Fatalf("duplicate counter name %q", def.Name)
		}
		names[def.Name] = true
		seen[def.ID] = true
	}
	for id := range snap.Counters {
		if !seen[id] {
			t.Fatalf("counter %d has no exported definition", id)
		}
	}
}

func TestBucketLayout(t *testing.T) {
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatalf("bounds and suffixes disagree: %d vs %d", len(HistogramUpperBounds), len(HistogramBoundSuffix))
	}
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("cumulative buckets = %v, want %v", got, want)
	}
}

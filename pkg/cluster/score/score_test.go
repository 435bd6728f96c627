package score

import (
	"math"
	"testing"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
)

func mkNode(idx int, freeMem, totalMem int64) cluster.Node {
	return cluster.Node{
		Idx: idx, Name: "node", TotalMem: totalMem, FreeMem: freeMem,
		TotalDisk: 1000, FreeDisk: 1000, TotalCPUs: 4, HiCPU: 4,
	}
}

func TestCompDetailedCVBalancedClusterHasZeroVariance(t *testing.T) {
	nodes := []cluster.Node{mkNode(0, 500, 1000), mkNode(1, 500, 1000)}
	detailed := CompDetailedCV(nodes)
	if detailed[0] != 0 {
		t.Fatalf("expected zero std_dev_pmem across identically-loaded nodes, got %v", detailed[0])
	}
}

func TestCompDetailedCVDetectsImbalance(t *testing.T) {
	nodes := []cluster.Node{mkNode(0, 900, 1000), mkNode(1, 100, 1000)}
	detailed := CompDetailedCV(nodes)
	if detailed[0] <= 0 {
		t.Fatalf("expected positive std_dev_pmem for an imbalanced cluster, got %v", detailed[0])
	}
}

func TestCompCVNodesOrderIndependent(t *testing.T) {
	a := []cluster.Node{mkNode(0, 900, 1000), mkNode(1, 100, 1000), mkNode(2, 500, 1000)}
	b := []cluster.Node{a[2], a[0], a[1]}

	if CompCVNodes(a) != CompCVNodes(b) {
		t.Fatal("CompCVNodes must be independent of input ordering")
	}
}

func TestCompCVWeightsOfflinePrimariesDominant(t *testing.T) {
	if Weights[5] <= Weights[0] {
		t.Fatal("offline_primaries weight must dominate so evacuating offline nodes always outranks cosmetic rebalance")
	}
}

func TestCompCVOfflineNodesExcludedFromPercentageMetrics(t *testing.T) {
	offline := mkNode(1, 900, 1000)
	offline.Offline = true
	offline.PriInstances = []int{1, 2}

	nodes := []cluster.Node{mkNode(0, 500, 1000), offline}
	detailed := CompDetailedCV(nodes)

	// Only one online node contributes to std_dev_pmem, so its stddev is 0.
	if detailed[0] != 0 {
		t.Fatalf("expected offline nodes excluded from std_dev_pmem, got %v", detailed[0])
	}
	// offline_primaries should reflect the offline node's hosted primaries.
	if detailed[5] != 2 {
		t.Fatalf("expected offline_primaries = 2, got %v", detailed[5])
	}
}

func TestCompCVNumMetricsMatchesWeightsLength(t *testing.T) {
	if len(Weights) != NumMetrics || len(MetricNames) != NumMetrics {
		t.Fatalf("Weights/MetricNames must each have NumMetrics=%d entries", NumMetrics)
	}
}

func TestStddevNaNFree(t *testing.T) {
	got := CompCVNodes(nil)
	if math.IsNaN(got) {
		t.Fatal("CompCVNodes over an empty node list must not be NaN")
	}
	if got != 0 {
		t.Fatalf("expected zero score for an empty cluster, got %v", got)
	}
}

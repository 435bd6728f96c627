package balancer

import (
	"testing"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
)

func mkNode(idx int, freeMem int64) cluster.Node {
	return cluster.Node{
		Idx: idx, Name: "node", TotalMem: 1000, FreeMem: freeMem,
		TotalDisk: 2000, FreeDisk: 2000, TotalCPUs: 8, HiCPU: 8, HiSpindles: 100,
	}
}

func imbalancedExternalMirrorCluster() (cluster.NodeList, cluster.InstanceList) {
	heavy := mkNode(0, 500)
	light := mkNode(1, 900)
	nl := cluster.NewMap[cluster.Node]()

	inst := cluster.Instance{
		Idx: 0, Name: "inst0", Mem: 400, DiskTemplate: cluster.DiskTemplateRbd,
		Movable: true, AutoBalance: true,
	}
	inst = inst.WithPlacement(0, cluster.NoSecondary)
	heavyWithInst, _, _ := cluster.AddPri(heavy, inst)

	nl = nl.Add(0, heavyWithInst).Add(1, light)
	il := cluster.NewMap[cluster.Instance]().Add(0, inst)
	return nl, il
}

func TestNewTableComputesInitialScore(t *testing.T) {
	nl, il := imbalancedExternalMirrorCluster()
	tbl := NewTable(nl, il)
	if tbl.Score <= 0 {
		t.Fatalf("expected a positive score for an imbalanced cluster, got %v", tbl.Score)
	}
	if len(tbl.Placements) != 0 {
		t.Fatal("expected no placements in a freshly built table")
	}
}

func TestCheckInstanceMoveImprovesScore(t *testing.T) {
	nl, il := imbalancedExternalMirrorCluster()
	tbl := NewTable(nl, il)

	out := CheckInstanceMove([]int{0, 1}, true, true, tbl, 0)
	if out.Score >= tbl.Score {
		t.Fatalf("expected CheckInstanceMove to find an improving move: before=%v after=%v", tbl.Score, out.Score)
	}
	if len(out.Placements) != 1 {
		t.Fatalf("expected exactly one placement recorded, got %d", len(out.Placements))
	}
}

func TestCheckMoveReturnsInputWhenNoProgress(t *testing.T) {
	nl := cluster.NewMap[cluster.Node]().Add(0, mkNode(0, 500)).Add(1, mkNode(1, 500))
	il := cluster.NewMap[cluster.Instance]()
	tbl := NewTable(nl, il)

	out := CheckMove([]int{0, 1}, true, true, tbl, nil)
	if out.Score != tbl.Score || len(out.Placements) != 0 {
		t.Fatalf("expected unchanged table with no victims, got %+v", out)
	}
}

func TestTryBalanceAcceptsOnlyStrictImprovement(t *testing.T) {
	nl, il := imbalancedExternalMirrorCluster()
	tbl := NewTable(nl, il)

	out, progressed := TryBalance(tbl, true, true, false, 0.01, 0.01)
	if !progressed {
		t.Fatal("expected TryBalance to accept an improving round")
	}
	if out.Score >= tbl.Score {
		t.Fatalf("expected improved score, before=%v after=%v", tbl.Score, out.Score)
	}

	// Running again on an already-balanced table should make no further
	// progress once nothing improves.
	stable, progressed2 := TryBalance(out, true, true, false, 0.01, 0.01)
	if progressed2 && stable.Score >= out.Score {
		t.Fatalf("a round reported as progressed must strictly improve the score")
	}
}

func TestTryBalanceEvacModeRestrictsToOfflineHostedInstances(t *testing.T) {
	online := mkNode(0, 500)
	offline := mkNode(1, 500)
	offline.Offline = true

	inst := cluster.Instance{
		Idx: 0, Name: "safe", Mem: 10, DiskTemplate: cluster.DiskTemplateRbd,
		Movable: true, AutoBalance: true,
	}
	inst = inst.WithPlacement(0, cluster.NoSecondary)
	withInst, _, _ := cluster.AddPri(online, inst)

	nl := cluster.NewMap[cluster.Node]().Add(0, withInst).Add(1, offline)
	il := cluster.NewMap[cluster.Instance]().Add(0, inst)
	tbl := NewTable(nl, il)

	_, progressed := TryBalance(tbl, true, true, true, 0.01, 0.01)
	if progressed {
		t.Fatal("evac mode must not move an instance that is not hosted on an offline node")
	}
}

func TestDoNextBalance(t *testing.T) {
	tbl := Table{Score: 5, Placements: make([]Placement, 3)}
	if !DoNextBalance(tbl, -1, 0) {
		t.Fatal("expected unbounded rounds with score above minScore to continue")
	}
	if DoNextBalance(tbl, 3, 0) {
		t.Fatal("expected the round budget to be exhausted at maxRounds == len(placements)")
	}
	if DoNextBalance(tbl, -1, 5) {
		t.Fatal("expected balancing to stop once score reaches minScore")
	}
}

package alloc

import (
	"testing"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
)

func mkNode(idx, group int, freeMem int64) cluster.Node {
	return cluster.Node{
		Idx: idx, Name: "node", Group: group,
		TotalMem: 1000, FreeMem: freeMem,
		TotalDisk: 2000, FreeDisk: 2000,
		TotalCPUs: 8, HiCPU: 8, HiSpindles: 100,
	}
}

func TestAllocateOnSingleRejectsInsufficientMemory(t *testing.T) {
	nl := cluster.NewMap[cluster.Node]().Add(0, mkNode(0, 0, 50))
	inst := cluster.Instance{Name: "x", Mem: 100, DiskTemplate: cluster.DiskTemplatePlain}

	_, fm, ok := AllocateOnSingle(nl, inst, 0)
	if ok {
		t.Fatal("expected allocation to fail on insufficient memory")
	}
	if fm != cluster.FailMem {
		t.Fatalf("expected FailMem, got %v", fm)
	}
}

func TestAllocateOnPairPlacesPrimaryAndSecondary(t *testing.T) {
	nl := cluster.NewMap[cluster.Node]().Add(0, mkNode(0, 0, 1000)).Add(1, mkNode(1, 0, 1000))
	inst := cluster.Instance{Name: "x", Mem: 100, Disk: 100, DiskTemplate: cluster.DiskTemplateDrbd8}

	el, fm, ok := AllocateOnPair(nl, inst, 0, 1)
	if !ok {
		t.Fatalf("AllocateOnPair failed: %v", fm)
	}
	if el.Instance.PriNode != 0 || el.Instance.SecNode != 1 {
		t.Fatalf("unexpected placement: %+v", el.Instance)
	}
}

func TestGenAllocNodesDropsOfflineAndUnallocable(t *testing.T) {
	offline := mkNode(0, 0, 1000)
	offline.Offline = true
	online := mkNode(1, 1, 1000)

	nl := cluster.NewMap[cluster.Node]().Add(0, offline).Add(1, online)
	groups := map[int]cluster.Group{
		0: {Idx: 0, AllocPolicy: cluster.AllocPreferred},
		1: {Idx: 1, AllocPolicy: cluster.AllocUnallocable},
	}

	_, err := GenAllocNodes(groups, nl, 1, true)
	if err != ErrNoOnlineNodes {
		t.Fatalf("expected ErrNoOnlineNodes (offline node dropped, group 1 unallocable), got %v", err)
	}
}

func TestGenAllocNodesPairRequiresSameGroupSecondary(t *testing.T) {
	a := mkNode(0, 0, 1000)
	b := mkNode(1, 1, 1000) // different group: not a valid secondary for a
	nl := cluster.NewMap[cluster.Node]().Add(0, a).Add(1, b)

	_, err := GenAllocNodes(map[int]cluster.Group{}, nl, 2, false)
	if err != ErrNotEnoughOnlineNodes {
		t.Fatalf("expected ErrNotEnoughOnlineNodes when no same-group secondary exists, got %v", err)
	}
}

func TestTryAllocPicksLowestScoringSingleCandidate(t *testing.T) {
	nl := cluster.NewMap[cluster.Node]().Add(0, mkNode(0, 0, 900)).Add(1, mkNode(1, 0, 100))
	inst := cluster.Instance{Name: "x", Mem: 50, DiskTemplate: cluster.DiskTemplatePlain}

	cands, err := GenAllocNodes(map[int]cluster.Group{}, nl, 1, false)
	if err != nil {
		t.Fatalf("GenAllocNodes: %v", err)
	}
	sol, err := TryAlloc(nl, inst, cands)
	if err != nil {
		t.Fatalf("TryAlloc: %v", err)
	}
	if sol.Success != 2 {
		t.Fatalf("expected both candidates to succeed, got %d", sol.Success)
	}
	if sol.Best == nil {
		t.Fatal("expected a best candidate")
	}
	if sol.Best.Instance.PriNode != 0 {
		t.Fatalf("expected node 0 (lowest resulting score) to win, got %d", sol.Best.Instance.PriNode)
	}
}

func TestTryAllocAggregatesFailureHistogram(t *testing.T) {
	tiny := mkNode(0, 0, 10)
	nl := cluster.NewMap[cluster.Node]().Add(0, tiny)
	inst := cluster.Instance{Name: "x", Mem: 9999, DiskTemplate: cluster.DiskTemplatePlain}

	cands, err := GenAllocNodes(map[int]cluster.Group{}, nl, 1, false)
	if err != nil {
		t.Fatalf("GenAllocNodes: %v", err)
	}
	sol, err := TryAlloc(nl, inst, cands)
	if err != nil {
		t.Fatalf("TryAlloc: %v", err)
	}
	if sol.Best != nil {
		t.Fatalf("expected no successful candidate, got %+v", sol.Best)
	}
	if sol.Failures[cluster.FailMem] != 1 {
		t.Fatalf("expected FailMem recorded once, got %+v", sol.Failures)
	}
}

func TestFindBestAllocGroupPrefersPreferredOverLastResort(t *testing.T) {
	nl := cluster.NewMap[cluster.Node]().Add(0, mkNode(0, 0, 1000)).Add(1, mkNode(1, 1, 1000))
	il := cluster.NewMap[cluster.Instance]()
	groups := map[int]cluster.Group{
		0: {Idx: 0, Name: "last-resort", AllocPolicy: cluster.AllocLastResort},
		1: {Idx: 1, Name: "preferred", AllocPolicy: cluster.AllocPreferred},
	}
	inst := cluster.Instance{Name: "x", Mem: 50, DiskTemplate: cluster.DiskTemplatePlain}

	g, _, err := FindBestAllocGroup(nl, il, groups, inst, 1, false)
	if err != nil {
		t.Fatalf("FindBestAllocGroup: %v", err)
	}
	if g.Name != "preferred" {
		t.Fatalf("expected the Preferred group to win over LastResort, got %q", g.Name)
	}
}

func TestDescribeOrdersByFailModeOrder(t *testing.T) {
	sol := Solution{Failures: map[cluster.FailMode]int{cluster.FailCPU: 1, cluster.FailMem: 2}}
	lines := Describe(sol)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", lines)
	}
	if lines[0] != "FailMem: 2" || lines[1] != "FailCPU: 1" {
		t.Fatalf("expected FailModeOrder ordering (Mem before CPU), got %v", lines)
	}
}

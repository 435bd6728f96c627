package evac

import (
	"testing"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
)

func mkNode(idx, group int) cluster.Node {
	return cluster.Node{
		Idx: idx, Name: "node", Group: group,
		TotalMem: 1000, FreeMem: 1000,
		TotalDisk: 2000, FreeDisk: 2000,
		TotalCPUs: 8, HiCPU: 8, HiSpindles: 100,
	}
}

func drbdFixture(offlinePrimary bool) (cluster.NodeList, cluster.InstanceList) {
	nl := cluster.NewMap[cluster.Node]()
	for i := 0; i < 4; i++ {
		nl = nl.Add(i, mkNode(i, 0))
	}
	inst := cluster.Instance{
		Idx: 0, Name: "inst0", Mem: 100, Disk: 100,
		DiskTemplate: cluster.DiskTemplateDrbd8, Movable: true, AutoBalance: true,
	}
	inst = inst.WithPlacement(0, 1)

	p, _, _ := cluster.AddPri(nl.MustFind(0), inst)
	s, _, _ := cluster.AddSec(nl.MustFind(1), inst, 0)
	if offlinePrimary {
		p.Offline = true
	}
	nl = nl.AddTwo(0, p, 1, s)

	il := cluster.NewMap[cluster.Instance]().Add(0, inst)
	return nl, il
}

func TestNodeEvacInstanceRejectsUnrelocatableTemplates(t *testing.T) {
	nl := cluster.NewMap[cluster.Node]().Add(0, mkNode(0, 0))
	inst := cluster.Instance{Idx: 0, Name: "x", DiskTemplate: cluster.DiskTemplatePlain}
	inst = inst.WithPlacement(0, cluster.NoSecondary)

	_, err := NodeEvacInstance(nl, cluster.NewMap[cluster.Instance]().Add(0, inst), ChangeAll, inst, 0, []int{})
	if err == nil {
		t.Fatal("expected plain disk template to reject evacuation")
	}
}

func TestNodeEvacInstanceChangeSecondaryRelocatesDrbd(t *testing.T) {
	nl, il := drbdFixture(false)
	inst, _ := il.Find(0)

	res, err := NodeEvacInstance(nl, il, ChangeSecondary, inst, 0, []int{2, 3})
	if err != nil {
		t.Fatalf("NodeEvacInstance ChangeSecondary failed: %v", err)
	}
	moved, _ := res.Instances.Find(0)
	if moved.PriNode != 0 {
		t.Fatalf("expected primary unchanged at 0, got %d", moved.PriNode)
	}
	if moved.SecNode != 2 && moved.SecNode != 3 {
		t.Fatalf("expected secondary relocated to one of the available nodes, got %d", moved.SecNode)
	}
}

func TestNodeEvacInstanceChangeSecondaryRejectedForExternalMirror(t *testing.T) {
	nl := cluster.NewMap[cluster.Node]().Add(0, mkNode(0, 0))
	inst := cluster.Instance{Idx: 0, Name: "x", DiskTemplate: cluster.DiskTemplateRbd}
	inst = inst.WithPlacement(0, cluster.NoSecondary)
	il := cluster.NewMap[cluster.Instance]().Add(0, inst)

	_, err := NodeEvacInstance(nl, il, ChangeSecondary, inst, 0, []int{1})
	if err == nil {
		t.Fatal("expected ChangeSecondary on an external-mirror instance to fail")
	}
}

func TestNodeEvacInstanceChangeAllHandlesOfflinePrimaryPreFailover(t *testing.T) {
	nl, il := drbdFixture(true)
	inst, _ := il.Find(0)

	res, err := NodeEvacInstance(nl, il, ChangeAll, inst, 0, []int{2, 3})
	if err != nil {
		t.Fatalf("NodeEvacInstance ChangeAll with offline primary failed: %v", err)
	}
	moved, _ := res.Instances.Find(0)
	if moved.PriNode == 0 {
		t.Fatal("expected instance relocated off the offline primary")
	}
}

func TestTryNodeEvacExcludesEvacuatedAndOfflineNodes(t *testing.T) {
	nl, il := drbdFixture(false)
	sol := TryNodeEvac(nl, il, ChangeAll, []int{2}, []int{0})

	if len(sol.Failed) != 0 {
		t.Fatalf("expected instance to be relocated successfully, got failures: %+v", sol.Failed)
	}
	if len(sol.Moved) != 1 {
		t.Fatalf("expected 1 moved instance, got %d", len(sol.Moved))
	}
	m := sol.Moved[0]
	if m.NewPri == 2 || m.NewSec == 2 {
		t.Fatalf("expected node 2 excluded from candidacy as it is being evacuated, got %+v", m)
	}
}

func TestTryNodeEvacRecordsFailureForUnknownInstance(t *testing.T) {
	nl, il := drbdFixture(false)
	sol := TryNodeEvac(nl, il, ChangeAll, nil, []int{999})
	if len(sol.Failed) != 1 || sol.Failed[0].InstanceIdx != 999 {
		t.Fatalf("expected a recorded failure for the unknown instance, got %+v", sol.Failed)
	}
}

func TestTryChangeGroupMovesInstanceToDifferentGroup(t *testing.T) {
	nl := cluster.NewMap[cluster.Node]()
	for i := 0; i < 2; i++ {
		nl = nl.Add(i, mkNode(i, 0))
	}
	for i := 2; i < 4; i++ {
		nl = nl.Add(i, mkNode(i, 1))
	}
	inst := cluster.Instance{
		Idx: 0, Name: "inst0", Mem: 100, Disk: 100,
		DiskTemplate: cluster.DiskTemplateDrbd8, Movable: true, AutoBalance: true,
	}
	inst = inst.WithPlacement(0, 1)
	p, _, _ := cluster.AddPri(nl.MustFind(0), inst)
	s, _, _ := cluster.AddSec(nl.MustFind(1), inst, 0)
	nl = nl.AddTwo(0, p, 1, s)
	il := cluster.NewMap[cluster.Instance]().Add(0, inst)

	groups := map[int]cluster.Group{
		0: {Idx: 0, Name: "group-a", AllocPolicy: cluster.AllocPreferred},
		1: {Idx: 1, Name: "group-b", AllocPolicy: cluster.AllocPreferred},
	}

	sol := TryChangeGroup(nl, il, groups, nil, []int{0}, true)
	if len(sol.Failed) != 0 {
		t.Fatalf("expected group-change to succeed, got failures: %+v", sol.Failed)
	}
	if len(sol.Moved) != 1 {
		t.Fatalf("expected 1 moved instance, got %d", len(sol.Moved))
	}
	if sol.Moved[0].GroupIdx != 1 {
		t.Fatalf("expected instance landed in group 1, got %d", sol.Moved[0].GroupIdx)
	}
}

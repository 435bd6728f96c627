package snapshotio

import (
	"testing"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
)

const sample = `
nodes:
  - idx: 0
    name: node-a
    group: 0
    totalMem: 1000
    totalDisk: 2000
    totalCPUs: 4
    vcpuRatio: 2
  - idx: 1
    name: node-b
    group: 1
    totalMem: 1000
    totalDisk: 2000
    totalCPUs: 4
instances:
  - idx: 0
    name: inst0
    priNode: 0
    secNode: -1
    mem: 100
    disk: 100
    vcpus: 1
    diskTemplate: plain
    autoBalance: true
    movable: true
groups:
  - idx: 0
    name: zone-a
    allocPolicy: preferred
  - idx: 1
    name: zone-b
    allocPolicy: last_resort
`

func TestDecodeNodesInstancesGroups(t *testing.T) {
	nl, il, groups, err := Decode([]byte(sample))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if nl.Size() != 2 {
		t.Fatalf("expected 2 nodes, got %d", nl.Size())
	}
	if il.Size() != 1 {
		t.Fatalf("expected 1 instance, got %d", il.Size())
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	n0, _ := nl.Find(0)
	if n0.FreeMem != 1000 || n0.FreeDisk != 2000 {
		t.Fatalf("expected a freshly decoded node to start fully free, got %+v", n0)
	}
	if n0.HiCPU != 8 {
		t.Fatalf("expected HiCPU derived from totalCPUs(4) * vcpuRatio(2) = 8, got %d", n0.HiCPU)
	}

	n1, _ := nl.Find(1)
	if n1.HiCPU != 4 {
		t.Fatalf("expected a default vcpuRatio of 1 when unset, giving HiCPU=4, got %d", n1.HiCPU)
	}

	inst, _ := il.Find(0)
	if inst.DiskTemplate != cluster.DiskTemplatePlain {
		t.Fatalf("expected plain disk template, got %v", inst.DiskTemplate)
	}
	if inst.SecNode != cluster.NoSecondary {
		t.Fatalf("expected NoSecondary, got %d", inst.SecNode)
	}

	if groups[0].AllocPolicy != cluster.AllocPreferred {
		t.Fatalf("expected group 0 to be Preferred, got %v", groups[0].AllocPolicy)
	}
	if groups[1].AllocPolicy != cluster.AllocLastResort {
		t.Fatalf("expected group 1 to be LastResort, got %v", groups[1].AllocPolicy)
	}
}

func TestDecodeDefaultsGroupWhenNoneSpecified(t *testing.T) {
	_, _, groups, err := Decode([]byte(`
nodes:
  - idx: 0
    name: n
    totalMem: 100
    totalDisk: 100
    totalCPUs: 1
instances: []
`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "default" {
		t.Fatalf("expected a single default group, got %+v", groups)
	}
}

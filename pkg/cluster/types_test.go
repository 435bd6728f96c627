package cluster

import "testing"

func TestDiskTemplateMirror(t *testing.T) {
	cases := []struct {
		tmpl DiskTemplate
		want MirrorType
	}{
		{DiskTemplateDrbd8, MirrorInternal},
		{DiskTemplateDiskless, MirrorExternal},
		{DiskTemplateSharedFile, MirrorExternal},
		{DiskTemplateBlock, MirrorExternal},
		{DiskTemplateRbd, MirrorExternal},
		{DiskTemplateExt, MirrorExternal},
		{DiskTemplatePlain, MirrorNone},
		{DiskTemplateFile, MirrorNone},
	}
	for _, c := range cases {
		if got := c.tmpl.Mirror(); got != c.want {
			t.Errorf("%v.Mirror() = %v, want %v", c.tmpl, got, c.want)
		}
	}
}

func TestAllocPolicyIsAllocable(t *testing.T) {
	if !AllocPreferred.IsAllocable() {
		t.Error("AllocPreferred should be allocable")
	}
	if !AllocLastResort.IsAllocable() {
		t.Error("AllocLastResort should be allocable")
	}
	if AllocUnallocable.IsAllocable() {
		t.Error("AllocUnallocable should not be allocable")
	}
}

func TestAllocPolicyOrderingIsAscendingPreference(t *testing.T) {
	if !(AllocPreferred < AllocLastResort && AllocLastResort < AllocUnallocable) {
		t.Fatal("AllocPolicy ordering must be Preferred < LastResort < Unallocable for multi-group sorting")
	}
}

func TestUtilAddSub(t *testing.T) {
	a := Util{CPU: 1, Mem: 2, Disk: 3, Net: 4}
	b := Util{CPU: 1, Mem: 1, Disk: 1, Net: 1}
	sum := a.Add(b)
	if sum != (Util{CPU: 2, Mem: 3, Disk: 4, Net: 5}) {
		t.Fatalf("unexpected sum: %+v", sum)
	}
	if diff := sum.Sub(b); diff != a {
		t.Fatalf("Sub did not invert Add: got %+v want %+v", diff, a)
	}
}

func TestNodePercentageHelpers(t *testing.T) {
	n := mkNode(0, 0, 1000, 2000, 4)
	n.FreeMem = 250
	n.FreeDisk = 500
	n.UsedCPUs = 2
	n.HiCPU = 4
	n.ReservedMem = 100

	if got := n.PMem(); got != 75 {
		t.Errorf("PMem = %v, want 75", got)
	}
	if got := n.PDsk(); got != 75 {
		t.Errorf("PDsk = %v, want 75", got)
	}
	if got := n.PCpu(); got != 50 {
		t.Errorf("PCpu = %v, want 50", got)
	}
	if got := n.PRem(); got != 10 {
		t.Errorf("PRem = %v, want 10", got)
	}
}

func TestGroupHasNetwork(t *testing.T) {
	g := Group{Networks: map[string]bool{"prod": true}}
	if !g.HasNetwork("") {
		t.Error("empty network name should always be reachable")
	}
	if !g.HasNetwork("prod") {
		t.Error("expected prod network to be reachable")
	}
	if g.HasNetwork("staging") {
		t.Error("expected staging network to be unreachable")
	}
}

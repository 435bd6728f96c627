package cluster

// instSpindles approximates the spindle cost of hosting inst: Diskless
// instances consume none, mirrored Drbd8 instances consume two (data +
// meta), everything else consumes one.
func instSpindles(inst Instance) int64 {
	switch inst.DiskTemplate {
	case DiskTemplateDiskless:
		return 0
	case DiskTemplateDrbd8:
		return 2
	default:
		return 1
	}
}

// InstMatchesPolicy validates an instance against a node's policy and
// exclusive-storage flag, per §4.1. It never looks at dynamic node state
// (free memory, disk, reservations) — callers combine this with the
// dynamic checks in AddPri/AddSec.
func InstMatchesPolicy(inst Instance, policy Policy, exclStorage bool) (FailMode, bool) {
	if !policy.accepts(inst.DiskTemplate) {
		return FailDiskTemplate, false
	}
	if policy.MinDiskSize > 0 && inst.Disk > 0 && inst.Disk < policy.MinDiskSize {
		return FailDisk, false
	}
	if policy.MaxDiskSize > 0 && inst.Disk > policy.MaxDiskSize {
		return FailDisk, false
	}
	// Exclusive-storage coherence: under exclusive storage every instance
	// must use whole spindles (no shared/thin templates).
	if exclStorage {
		switch inst.DiskTemplate {
		case DiskTemplateSharedFile, DiskTemplateFile:
			return FailDiskTemplate, false
		}
	}
	return 0, true
}

func conflictCount(n Node, tags []string) int {
	count := 0
	for _, t := range tags {
		if n.PriTagCounts != nil && n.PriTagCounts[t] > 0 {
			count++
		}
	}
	return count
}

// AddPri adds inst to n as a primary. Equivalent to AddPriEx(false, n, inst).
func AddPri(n Node, inst Instance) (Node, FailMode, bool) {
	return AddPriEx(false, n, inst)
}

// AddPriEx adds inst to n as a primary, skipping the N+1 check (reserved
// memory must still fit in the free memory left) and the tag-conflict check
// when force is true (used when the instance's originating node is offline —
// a forced failover per spec.md §4.3).
func AddPriEx(force bool, n Node, inst Instance) (Node, FailMode, bool) {
	if fm, ok := InstMatchesPolicy(inst, n.Policy, n.ExclStorage); !ok {
		return n, fm, false
	}
	if n.FreeMem < inst.Mem {
		return n, FailMem, false
	}
	if n.FreeDisk < inst.Disk {
		return n, FailDisk, false
	}
	if n.UsedCPUs+inst.VCPUs > n.HiCPU {
		return n, FailCPU, false
	}
	sp := instSpindles(inst)
	if n.InstanceSpindles+sp > n.HiSpindles && n.HiSpindles > 0 {
		return n, FailSpindles, false
	}
	if !force && n.ReservedMem > n.FreeMem-inst.Mem {
		return n, FailN1, false
	}
	if !force && conflictCount(n, inst.Tags) > 0 {
		return n, FailTags, false
	}

	out := n
	out.FreeMem -= inst.Mem
	out.FreeDisk -= inst.Disk
	out.UsedCPUs += inst.VCPUs
	out.InstanceSpindles += sp
	out.PriInstances = append(appendCopy(n.PriInstances), inst.Idx)
	out.UtilLoad = n.UtilLoad.Add(inst.Util)
	out.ConflictingPrimaries = n.ConflictingPrimaries + conflictCount(n, inst.Tags)
	out.PriTagCounts = bumpTags(n.PriTagCounts, inst.Tags, 1)
	return out, 0, true
}

// AddSec adds inst to n as a secondary of primaryNdx. Equivalent to
// AddSecEx(false, ...).
func AddSec(n Node, inst Instance, primaryNdx int) (Node, FailMode, bool) {
	return AddSecEx(false, n, inst, primaryNdx)
}

// AddSecEx adds inst to n as a secondary, skipping the N+1 reservation
// check when force is true.
func AddSecEx(force bool, n Node, inst Instance, primaryNdx int) (Node, FailMode, bool) {
	if n.FreeDisk < inst.Disk {
		return n, FailDisk, false
	}
	candReserved := inst.Mem
	if n.ReservedMem > candReserved {
		candReserved = n.ReservedMem
	}
	if !force && candReserved > n.FreeMem {
		return n, FailN1, false
	}
	sp := instSpindles(inst)
	if n.InstanceSpindles+sp > n.HiSpindles && n.HiSpindles > 0 {
		return n, FailSpindles, false
	}

	out := n
	out.FreeDisk -= inst.Disk
	out.InstanceSpindles += sp
	out.SecInstances = append(appendCopy(n.SecInstances), inst.Idx)
	out.SecMemDemand = bumpMem(n.SecMemDemand, inst.Idx, inst.Mem)
	out.ReservedMem = maxSecMem(out.SecMemDemand)
	return out, 0, true
}

// RemovePri is the inverse of AddPri/AddPriEx.
func RemovePri(n Node, inst Instance) Node {
	out := n
	out.FreeMem += inst.Mem
	out.FreeDisk += inst.Disk
	out.UsedCPUs -= inst.VCPUs
	out.InstanceSpindles -= instSpindles(inst)
	out.PriInstances = removeIdx(n.PriInstances, inst.Idx)
	out.UtilLoad = n.UtilLoad.Sub(inst.Util)
	out.PriTagCounts = bumpTags(n.PriTagCounts, inst.Tags, -1)
	out.ConflictingPrimaries = conflictCountForAll(out)
	return out
}

// RemoveSec is the inverse of AddSec/AddSecEx; ReservedMem is recomputed
// from the remaining secondary set, per data-model invariant 7.
func RemoveSec(n Node, inst Instance) Node {
	out := n
	out.FreeDisk += inst.Disk
	out.InstanceSpindles -= instSpindles(inst)
	out.SecInstances = removeIdx(n.SecInstances, inst.Idx)
	out.SecMemDemand = dropMem(n.SecMemDemand, inst.Idx)
	out.ReservedMem = maxSecMem(out.SecMemDemand)
	return out
}

func maxSecMem(m map[int]int64) int64 {
	var max int64
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}

func bumpMem(m map[int]int64, idx int, mem int64) map[int]int64 {
	out := make(map[int]int64, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[idx] = mem
	return out
}

func dropMem(m map[int]int64, idx int) map[int]int64 {
	out := make(map[int]int64, len(m))
	for k, v := range m {
		if k != idx {
			out[k] = v
		}
	}
	return out
}

func bumpTags(m map[string]int, tags []string, delta int) map[string]int {
	out := make(map[string]int, len(m)+len(tags))
	for k, v := range m {
		out[k] = v
	}
	for _, t := range tags {
		out[t] += delta
		if out[t] <= 0 {
			delete(out, t)
		}
	}
	return out
}

// conflictCountForAll is a coarse re-derivation of ConflictingPrimaries used
// after a removal; since PriTagCounts already reflects the remaining
// primaries, any tag with count > 1 contributes (count-1) conflicting
// instances sharing it.
func conflictCountForAll(n Node) int {
	total := 0
	for _, c := range n.PriTagCounts {
		if c > 1 {
			total += c - 1
		}
	}
	return total
}

func appendCopy(s []int) []int {
	out := make([]int, len(s), len(s)+1)
	copy(out, s)
	return out
}

func removeIdx(s []int, idx int) []int {
	out := make([]int, 0, len(s))
	for _, v := range s {
		if v != idx {
			out = append(out, v)
		}
	}
	return out
}

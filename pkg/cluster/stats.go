package cluster

// CStats is a 21-field aggregate of cluster totals, used by the iterative
// and tiered allocators (C7) to track how the cluster fills up step by
// step. Score is left zero by ComputeCStats — it depends on the score
// package, which itself depends on this one — and is populated by the
// caller that already computes it (the iterative allocator in
// pkg/cluster/iterate).
type CStats struct {
	TotalMem        int64
	TotalDisk       int64
	TotalCPUs       int64
	FreeMem         int64
	FreeDisk        int64
	UsedMem         int64
	UsedDisk        int64
	UsedCPUs        int64
	AllocatableMem  int64
	AllocatableDisk int64
	AllocatableCPUs int64
	MaxMemPerNode   int64
	MaxDiskPerNode  int64
	MaxCPUsPerNode  int64
	ReservedMem     int64
	NodeCount       int
	OnlineNodeCount int
	InstanceCount   int
	BadN1Count      int
	NormCPU         float64
	Score           float64
}

// ComputeCStats aggregates totals over every node and instance in the
// snapshot. Offline nodes contribute to NodeCount but not to the capacity
// totals, since they are not allocation targets.
func ComputeCStats(nl NodeList, il InstanceList) CStats {
	var s CStats
	s.NodeCount = nl.Size()
	s.InstanceCount = il.Size()

	for _, n := range nl.Elems() {
		if n.Offline {
			continue
		}
		s.OnlineNodeCount++
		s.TotalMem += n.TotalMem
		s.TotalDisk += n.TotalDisk
		s.TotalCPUs += n.TotalCPUs
		s.FreeMem += n.FreeMem
		s.FreeDisk += n.AvailDisk()
		s.UsedCPUs += n.UsedCPUs
		s.ReservedMem += n.ReservedMem
		if n.TotalMem > s.MaxMemPerNode {
			s.MaxMemPerNode = n.TotalMem
		}
		if n.TotalDisk > s.MaxDiskPerNode {
			s.MaxDiskPerNode = n.TotalDisk
		}
		if n.TotalCPUs > s.MaxCPUsPerNode {
			s.MaxCPUsPerNode = n.TotalCPUs
		}
		if n.FailN1() {
			s.BadN1Count++
		}
	}

	s.UsedMem = s.TotalMem - s.FreeMem
	s.UsedDisk = s.TotalDisk - s.FreeDisk
	s.AllocatableMem = s.FreeMem - s.ReservedMem
	if s.AllocatableMem < 0 {
		s.AllocatableMem = 0
	}
	s.AllocatableDisk = s.FreeDisk
	s.AllocatableCPUs = s.TotalCPUs
	if s.TotalCPUs > 0 {
		s.NormCPU = float64(s.UsedCPUs) / float64(s.TotalCPUs)
	}
	return s
}

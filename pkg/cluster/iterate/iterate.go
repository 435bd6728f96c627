// Package iterate implements iterative and tiered allocation (C7):
// repeatedly allocating clones of a base instance spec until the cluster
// fills up, and, on exhaustion, shrinking the spec along its most
// frequently failing dimension and retrying.
package iterate

import (
	"fmt"
	"sort"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
	"github.com/hsalcedo/clusterbal/pkg/cluster/alloc"
)

// Step is one successful allocation step: the placed clone and the
// cluster-wide totals immediately after it landed.
type Step struct {
	Instance cluster.Instance
	Stats    cluster.CStats
}

// Result is the accumulated outcome of a (tiered) iterative allocation run.
type Result struct {
	Nodes        cluster.NodeList
	Instances    cluster.InstanceList
	Allocated    []cluster.Instance
	Steps        []Step
	LastSolution alloc.Solution
}

// IterateAlloc repeatedly allocates clones of base (renamed "new-<depth>",
// with a fresh index equal to the current instance count) until TryAlloc
// yields no solution, or maxCount clones have been placed (maxCount < 0
// means unbounded).
func IterateAlloc(nl cluster.NodeList, il cluster.InstanceList, groups map[int]cluster.Group, base cluster.Instance, count int, dropUnallocable bool, maxCount int) Result {
	curNl, curIl := nl, il
	var allocated []cluster.Instance
	var steps []Step
	var lastSol alloc.Solution

	for depth := 0; maxCount < 0 || depth < maxCount; depth++ {
		clone := base
		clone.Idx = curIl.Size()
		clone.Name = fmt.Sprintf("new-%d", depth)

		cands, err := alloc.GenAllocNodes(groups, curNl, count, dropUnallocable)
		if err != nil {
			break
		}
		sol, err := alloc.TryAlloc(curNl, clone, cands)
		lastSol = sol
		if err != nil || sol.Best == nil {
			break
		}

		placed := sol.Best.Instance
		curNl = sol.Best.Nodes
		curIl = curIl.Add(placed.Idx, placed)
		allocated = append(allocated, placed)

		stats := cluster.ComputeCStats(curNl, curIl)
		stats.Score = sol.Best.Score
		steps = append(steps, Step{Instance: placed, Stats: stats})
	}

	return Result{Nodes: curNl, Instances: curIl, Allocated: allocated, Steps: steps, LastSolution: lastSol}
}

const (
	minShrinkMem   int64 = 128
	minShrinkDisk  int64 = 1024
	minShrinkVCPUs int64 = 1
	shrinkFactor         = 0.8
)

// ShrinkByType reduces spec along the dimension named by fm, by
// shrinkFactor, refusing once a minimum floor would be crossed or no
// reduction would occur. Dimensions other than memory, disk and CPU cannot
// be shrunk.
func ShrinkByType(spec cluster.Instance, fm cluster.FailMode) (cluster.Instance, bool) {
	switch fm {
	case cluster.FailMem:
		next := int64(float64(spec.Mem) * shrinkFactor)
		if next < minShrinkMem || next >= spec.Mem {
			return spec, false
		}
		spec.Mem = next
		return spec, true
	case cluster.FailDisk, cluster.FailDiskCount, cluster.FailSpindles:
		next := int64(float64(spec.Disk) * shrinkFactor)
		if next < minShrinkDisk || next >= spec.Disk {
			return spec, false
		}
		spec.Disk = next
		return spec, true
	case cluster.FailCPU:
		next := spec.VCPUs - 1
		if next < minShrinkVCPUs {
			return spec, false
		}
		spec.VCPUs = next
		return spec, true
	default:
		return spec, false
	}
}

// pickShrinkDimension implements spec.md §9's resolved open question: the
// shrink dimension is the highest-count FailMode in the histogram, ties
// broken by FailModeOrder (the last entry after a stable ascending sort by
// count — equal-count entries keep their FailModeOrder position, so among
// ties the one occurring latest in FailModeOrder is picked).
func pickShrinkDimension(failures map[cluster.FailMode]int) (cluster.FailMode, bool) {
	type entry struct {
		fm    cluster.FailMode
		count int
	}
	var entries []entry
	for _, fm := range cluster.FailModeOrder {
		if c := failures[fm]; c > 0 {
			entries = append(entries, entry{fm, c})
		}
	}
	if len(entries) == 0 {
		return 0, false
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].count < entries[j].count })
	return entries[len(entries)-1].fm, true
}

func shrinkSpec(spec cluster.Instance, failures map[cluster.FailMode]int) (cluster.Instance, cluster.FailMode, bool) {
	fm, ok := pickShrinkDimension(failures)
	if !ok {
		return spec, 0, false
	}
	next, ok := ShrinkByType(spec, fm)
	return next, fm, ok
}

// TierResult is TieredAlloc's outcome: the accumulated allocation result
// across every tier, the final (possibly shrunk) spec, and the sequence of
// dimensions shrunk along the way.
type TierResult struct {
	Result     Result
	FinalSpec  cluster.Instance
	ShrinkPath []cluster.FailMode
}

// TieredAlloc calls IterateAlloc; whenever it stops because it could not
// place another clone, the spec is shrunk along its most-failing dimension
// and allocation resumes from the snapshot already reached. The loop ends
// when the requested count is reached or shrinking itself fails.
func TieredAlloc(nl cluster.NodeList, il cluster.InstanceList, groups map[int]cluster.Group, base cluster.Instance, count int, dropUnallocable bool, maxCount int) TierResult {
	curNl, curIl := nl, il
	spec := base
	var allAllocated []cluster.Instance
	var allSteps []Step
	var shrinkPath []cluster.FailMode
	var lastSol alloc.Solution

	for {
		remaining := maxCount
		if maxCount >= 0 {
			remaining = maxCount - len(allAllocated)
			if remaining <= 0 {
				break
			}
		}

		res := IterateAlloc(curNl, curIl, groups, spec, count, dropUnallocable, remaining)
		curNl, curIl = res.Nodes, res.Instances
		allAllocated = append(allAllocated, res.Allocated...)
		allSteps = append(allSteps, res.Steps...)
		lastSol = res.LastSolution

		if maxCount >= 0 && len(allAllocated) >= maxCount {
			break
		}

		next, fm, ok := shrinkSpec(spec, lastSol.Failures)
		if !ok {
			break
		}
		spec = next
		shrinkPath = append(shrinkPath, fm)
	}

	return TierResult{
		Result:     Result{Nodes: curNl, Instances: curIl, Allocated: allAllocated, Steps: allSteps, LastSolution: lastSol},
		FinalSpec:  spec,
		ShrinkPath: shrinkPath,
	}
}

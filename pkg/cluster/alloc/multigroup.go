package alloc

import (
	"fmt"
	"sort"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
)

// GroupResult is one group's attempted allocation, used by FindBestAllocGroup
// to rank candidate landing groups.
type GroupResult struct {
	Group    cluster.Group
	Solution Solution
}

// FilterValidGroups drops groups not connected to every network required by
// inst's NICs.
func FilterValidGroups(groups map[int]cluster.Group, inst cluster.Instance) map[int]cluster.Group {
	out := map[int]cluster.Group{}
	for idx, g := range groups {
		ok := true
		for _, nic := range inst.NICs {
			if !g.HasNetwork(nic.Network) {
				ok = false
				break
			}
		}
		if ok {
			out[idx] = g
		}
	}
	return out
}

// FindBestAllocGroup splits the cluster by group, attempts allocation of
// inst in every network-valid group, and picks the best by
// (AllocPolicy, Score) ascending — Preferred sorts before LastResort,
// lower score wins within the same policy tier. Groups with no solution or
// with an Unallocable policy are excluded.
func FindBestAllocGroup(nl cluster.NodeList, il cluster.InstanceList, groups map[int]cluster.Group, inst cluster.Instance, count int, dropUnallocable bool) (cluster.Group, Solution, error) {
	valid := FilterValidGroups(groups, inst)
	splits := cluster.SplitCluster(nl, il)

	validIdxs := make([]int, 0, len(valid))
	for idx := range valid {
		validIdxs = append(validIdxs, idx)
	}
	sort.Ints(validIdxs)

	var results []GroupResult
	for _, idx := range validIdxs {
		g := valid[idx]
		if !g.AllocPolicy.IsAllocable() {
			continue
		}
		gs, ok := splits[idx]
		if !ok {
			continue
		}
		cands, err := GenAllocNodes(groups, gs.Nodes, count, dropUnallocable)
		if err != nil {
			continue
		}
		sol, err := TryAlloc(gs.Nodes, inst, cands)
		if err != nil || sol.Best == nil {
			continue
		}
		results = append(results, GroupResult{Group: g, Solution: sol})
	}

	if len(results) == 0 {
		return cluster.Group{}, Solution{}, fmt.Errorf("Allocation failed: no feasible group for instance %q", inst.Name)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Group.AllocPolicy != b.Group.AllocPolicy {
			return a.Group.AllocPolicy < b.Group.AllocPolicy
		}
		return a.Solution.Best.Score < b.Solution.Best.Score
	})

	best := results[0]
	return best.Group, best.Solution, nil
}

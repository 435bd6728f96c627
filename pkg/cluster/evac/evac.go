// Package evac implements evacuation and group-change (C6): relocating one
// or more instances off a set of nodes, or into a different node-group,
// while minimizing the resulting score within the landing group.
package evac

import (
	"fmt"
	"sort"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
	"github.com/hsalcedo/clusterbal/pkg/cluster/alloc"
	"github.com/hsalcedo/clusterbal/pkg/cluster/moves"
	"github.com/hsalcedo/clusterbal/pkg/cluster/opcodes"
	"github.com/hsalcedo/clusterbal/pkg/cluster/score"
)

// EvacMode selects which endpoint(s) of an instance's placement may move.
type EvacMode int

const (
	ChangePrimary EvacMode = iota
	ChangeSecondary
	ChangeAll
)

func (m EvacMode) String() string {
	switch m {
	case ChangePrimary:
		return "change-primary"
	case ChangeSecondary:
		return "change-secondary"
	case ChangeAll:
		return "change-all"
	default:
		return "unknown-evac-mode"
	}
}

// Result is the outcome of relocating a single instance: the new snapshot,
// the opcode sequence a caller would submit, and the score over the
// destination group's nodes.
type Result struct {
	Nodes     cluster.NodeList
	Instances cluster.InstanceList
	Opcodes   []opcodes.Job
	Score     float64
}

func groupScore(nl cluster.NodeList, gdx int) float64 {
	var nodes []cluster.Node
	for _, n := range nl.Elems() {
		if n.Group == gdx {
			nodes = append(nodes, n)
		}
	}
	return score.CompCVNodes(nodes)
}

type evacCandidate struct {
	res   moves.Result
	move  moves.Move
	score float64
}

// evacOneNodeOnly tries mkMove(ndx) for every ndx in availNodes, keeping the
// lower-scoring success (first-seen wins ties). A failure is only recorded
// as the returned error if no success has been found yet, since once a
// Right exists the failure reasons are no longer needed.
func evacOneNodeOnly(nl cluster.NodeList, il cluster.InstanceList, inst cluster.Instance, gdx int, availNodes []int, mkMove func(int) moves.Move) (Result, error) {
	var best *evacCandidate
	var lastErr error

	for _, ndx := range availNodes {
		m := mkMove(ndx)
		res, fm, ok := moves.ApplyMove(nl, il, inst.Idx, m)
		if !ok {
			if best == nil {
				lastErr = fmt.Errorf("%s", fm)
			}
			continue
		}
		sc := groupScore(res.Nodes, gdx)
		if best == nil || sc < best.score {
			best = &evacCandidate{res: res, move: m, score: sc}
		}
	}

	if best == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("no candidate node available")
		}
		return Result{}, fmt.Errorf("evacuation failed: %w", lastErr)
	}

	ops := opcodes.IMoveToJob(nl, il, inst.Idx, best.move)
	return Result{Nodes: best.res.Nodes, Instances: best.res.Instances, Opcodes: ops, Score: best.score}, nil
}

// evacDrbdAllInner relocates a Drbd8 instance to the pair (tPdx, tSdx)
// through the four staged steps of spec.md §4.6: an optional pre-failover
// when the current primary is offline, replace-secondary to the target
// primary, failover, then replace-secondary to the target secondary.
func evacDrbdAllInner(nl cluster.NodeList, il cluster.InstanceList, inst cluster.Instance, gdx, tPdx, tSdx int) (Result, error) {
	curNl, curIl, curInst := nl, il, inst
	var ops []opcodes.Job

	if op, ok := curNl.Find(curInst.PriNode); ok && op.Offline {
		m := moves.Move{Kind: moves.Failover}
		res, fm, ok := moves.ApplyMove(curNl, curIl, curInst.Idx, m)
		if !ok {
			return Result{}, fmt.Errorf("evacuation failed at pre-failover: %s", fm)
		}
		ops = append(ops, opcodes.IMoveToJob(curNl, curIl, curInst.Idx, m)...)
		curNl, curIl = res.Nodes, res.Instances
		curInst, _ = curIl.Find(curInst.Idx)
	}

	steps := []moves.Move{
		{Kind: moves.ReplaceSecondary, Target: tPdx},
		{Kind: moves.Failover},
		{Kind: moves.ReplaceSecondary, Target: tSdx},
	}
	for _, m := range steps {
		res, fm, ok := moves.ApplyMove(curNl, curIl, curInst.Idx, m)
		if !ok {
			return Result{}, fmt.Errorf("evacuation failed at %s: %s", m, fm)
		}
		ops = append(ops, opcodes.IMoveToJob(curNl, curIl, curInst.Idx, m)...)
		curNl, curIl = res.Nodes, res.Instances
		curInst, _ = curIl.Find(curInst.Idx)
	}

	return Result{Nodes: curNl, Instances: curIl, Opcodes: ops, Score: groupScore(curNl, gdx)}, nil
}

// evacDrbdAllBest tries evacDrbdAllInner for every ordered (p, s) pair with
// p != s drawn from availNodes and keeps the lowest-scoring success.
func evacDrbdAllBest(nl cluster.NodeList, il cluster.InstanceList, inst cluster.Instance, gdx int, availNodes []int) (Result, error) {
	var best *Result
	var lastErr error

	for _, p := range availNodes {
		for _, s := range availNodes {
			if p == s {
				continue
			}
			res, err := evacDrbdAllInner(nl, il, inst, gdx, p, s)
			if err != nil {
				if best == nil {
					lastErr = err
				}
				continue
			}
			if best == nil || res.Score < best.Score {
				r := res
				best = &r
			}
		}
	}

	if best == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("no feasible primary/secondary pair")
		}
		return Result{}, fmt.Errorf("evacuation failed: %w", lastErr)
	}
	return *best, nil
}

// NodeEvacInstance dispatches on (disk_template, mode) per spec.md §4.6.
func NodeEvacInstance(nl cluster.NodeList, il cluster.InstanceList, mode EvacMode, inst cluster.Instance, gdx int, availNodes []int) (Result, error) {
	switch inst.DiskTemplate {
	case cluster.DiskTemplatePlain, cluster.DiskTemplateFile:
		return Result{}, fmt.Errorf("Instances with disk template '%s' cannot be relocated", inst.DiskTemplate)

	case cluster.DiskTemplateDiskless, cluster.DiskTemplateSharedFile, cluster.DiskTemplateBlock, cluster.DiskTemplateRbd, cluster.DiskTemplateExt:
		switch mode {
		case ChangePrimary, ChangeAll:
			return evacOneNodeOnly(nl, il, inst, gdx, availNodes, func(ndx int) moves.Move {
				return moves.Move{Kind: moves.FailoverToAny, Target: ndx}
			})
		case ChangeSecondary:
			return Result{}, fmt.Errorf("Instances with disk template '%s' can't execute change secondary", inst.DiskTemplate)
		}

	case cluster.DiskTemplateDrbd8:
		switch mode {
		case ChangePrimary:
			m := moves.Move{Kind: moves.Failover}
			res, fm, ok := moves.ApplyMove(nl, il, inst.Idx, m)
			if !ok {
				return Result{}, fmt.Errorf("evacuation failed: %s", fm)
			}
			ops := opcodes.IMoveToJob(nl, il, inst.Idx, m)
			return Result{Nodes: res.Nodes, Instances: res.Instances, Opcodes: ops, Score: groupScore(res.Nodes, gdx)}, nil
		case ChangeSecondary:
			return evacOneNodeOnly(nl, il, inst, gdx, availNodes, func(ndx int) moves.Move {
				return moves.Move{Kind: moves.ReplaceSecondary, Target: ndx}
			})
		case ChangeAll:
			return evacDrbdAllBest(nl, il, inst, gdx, availNodes)
		}
	}

	return Result{}, fmt.Errorf("evacuation failed: unsupported disk template '%s'", inst.DiskTemplate)
}

// MovedInstance records one successfully relocated instance.
type MovedInstance struct {
	InstanceIdx int
	GroupIdx    int
	NewPri      int
	NewSec      int
}

// FailedInstance records one instance that could not be relocated.
type FailedInstance struct {
	InstanceIdx int
	Reason      string
}

// Solution is the accumulated outcome of evacuating or group-changing a set
// of instances: the resulting snapshot, the moved and failed instance
// lists (both chronological), and the full opcode-job sequence.
type Solution struct {
	Nodes     cluster.NodeList
	Instances cluster.InstanceList
	Moved     []MovedInstance
	Failed    []FailedInstance
	Jobs      []opcodes.Job
}

func updateEvacSolution(sol Solution, instIdx int, res Result, gdx int) Solution {
	inst2, _ := res.Instances.Find(instIdx)
	sol.Nodes = res.Nodes
	sol.Instances = res.Instances
	sol.Moved = append([]MovedInstance{{InstanceIdx: instIdx, GroupIdx: gdx, NewPri: inst2.PriNode, NewSec: inst2.SecNode}}, sol.Moved...)
	sol.Jobs = append(sol.Jobs, res.Opcodes...)
	return sol
}

func updateEvacSolutionFailed(sol Solution, instIdx int, reason string) Solution {
	sol.Failed = append(sol.Failed, FailedInstance{InstanceIdx: instIdx, Reason: reason})
	return sol
}

// reverseMoved restores chronological order after accumulation has built
// the moved list newest-first.
func reverseMoved(in []MovedInstance) []MovedInstance {
	out := make([]MovedInstance, len(in))
	for i, m := range in {
		out[len(in)-1-i] = m
	}
	return out
}

func availableGroupNodes(nl cluster.NodeList, gdx int, excluded map[int]bool, ownPri int) []int {
	var out []int
	for _, n := range nl.Elems() {
		if n.Group != gdx || n.Idx == ownPri || excluded[n.Idx] {
			continue
		}
		out = append(out, n.Idx)
	}
	return out
}

// TryNodeEvac relocates every instance in instanceIdxs (in input order) off
// nodesToEvacuate and off any offline node, keeping each instance in its own
// primary group. The instance's own primary is always excluded from its own
// candidate set.
func TryNodeEvac(nl cluster.NodeList, il cluster.InstanceList, mode EvacMode, nodesToEvacuate []int, instanceIdxs []int) Solution {
	excluded := map[int]bool{}
	for _, n := range nl.Elems() {
		if n.Offline {
			excluded[n.Idx] = true
		}
	}
	for _, ndx := range nodesToEvacuate {
		excluded[ndx] = true
	}

	sol := Solution{Nodes: nl, Instances: il}
	for _, instIdx := range instanceIdxs {
		inst, ok := sol.Instances.Find(instIdx)
		if !ok {
			sol = updateEvacSolutionFailed(sol, instIdx, "instance not found")
			continue
		}
		gdx, ok := cluster.InstancePriGroup(sol.Nodes, inst)
		if !ok {
			sol = updateEvacSolutionFailed(sol, instIdx, "primary node not found")
			continue
		}
		avail := availableGroupNodes(sol.Nodes, gdx, excluded, inst.PriNode)
		res, err := NodeEvacInstance(sol.Nodes, sol.Instances, mode, inst, gdx, avail)
		if err != nil {
			sol = updateEvacSolutionFailed(sol, instIdx, err.Error())
			continue
		}
		sol = updateEvacSolution(sol, instIdx, res, gdx)
	}
	sol.Moved = reverseMoved(sol.Moved)
	return sol
}

func candidateCount(inst cluster.Instance) int {
	if inst.Mirror() == cluster.MirrorInternal {
		return 2
	}
	return 1
}

func groupNodeIdxs(nl cluster.NodeList, gdx int, ownPri int) []int {
	var out []int
	for _, n := range nl.Elems() {
		if n.Group == gdx && n.Idx != ownPri {
			out = append(out, n.Idx)
		}
	}
	return out
}

// TryChangeGroup relocates every instance in instanceIdxs into a different
// node-group chosen by alloc.FindBestAllocGroup, drawn from requestedGroups
// (or every group, if requestedGroups is empty) minus the primary groups of
// the instances being moved.
func TryChangeGroup(nl cluster.NodeList, il cluster.InstanceList, groups map[int]cluster.Group, requestedGroups []int, instanceIdxs []int, dropUnallocable bool) Solution {
	evacuating := map[int]bool{}
	for _, instIdx := range instanceIdxs {
		if inst, ok := il.Find(instIdx); ok {
			if gdx, ok := cluster.InstancePriGroup(nl, inst); ok {
				evacuating[gdx] = true
			}
		}
	}

	var targetIdxs []int
	if len(requestedGroups) == 0 {
		for idx := range groups {
			targetIdxs = append(targetIdxs, idx)
		}
	} else {
		targetIdxs = append(targetIdxs, requestedGroups...)
	}
	sort.Ints(targetIdxs)

	targetGroups := map[int]cluster.Group{}
	for _, idx := range targetIdxs {
		if evacuating[idx] {
			continue
		}
		if g, ok := groups[idx]; ok {
			targetGroups[idx] = g
		}
	}

	sol := Solution{Nodes: nl, Instances: il}
	for _, instIdx := range instanceIdxs {
		inst, ok := sol.Instances.Find(instIdx)
		if !ok {
			sol = updateEvacSolutionFailed(sol, instIdx, "instance not found")
			continue
		}
		landing, _, err := alloc.FindBestAllocGroup(sol.Nodes, sol.Instances, targetGroups, inst, candidateCount(inst), dropUnallocable)
		if err != nil {
			sol = updateEvacSolutionFailed(sol, instIdx, err.Error())
			continue
		}
		avail := groupNodeIdxs(sol.Nodes, landing.Idx, inst.PriNode)
		res, err := NodeEvacInstance(sol.Nodes, sol.Instances, ChangeAll, inst, landing.Idx, avail)
		if err != nil {
			sol = updateEvacSolutionFailed(sol, instIdx, err.Error())
			continue
		}
		sol = updateEvacSolution(sol, instIdx, res, landing.Idx)
	}
	sol.Moved = reverseMoved(sol.Moved)
	return sol
}

// Package balancer implements the hill-climbing balancer (C5): it
// evaluates every instance x candidate target x move, keeps the single
// best by score, and iterates until a gain threshold or round budget is
// exhausted.
package balancer

import (
	"sync"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
	"github.com/hsalcedo/clusterbal/pkg/cluster/moves"
	"github.com/hsalcedo/clusterbal/pkg/cluster/score"
)

// Placement is one balancer step: the instance moved, its new placement,
// the move variant used, and the resulting cluster score.
type Placement struct {
	InstanceIdx int
	OldPri      int
	OldSec      int
	NewPri      int
	NewSec      int
	Move        moves.Move
	Score       float64
}

// Table is the balancer's state: a node/instance snapshot, its score, and
// the newest-first list of placements that produced it.
type Table struct {
	Nodes      cluster.NodeList
	Instances  cluster.InstanceList
	Score      float64
	Placements []Placement
}

// NewTable builds the initial balancer state from a snapshot.
func NewTable(nl cluster.NodeList, il cluster.InstanceList) Table {
	return Table{Nodes: nl, Instances: il, Score: score.CompCV(nl)}
}

// compareTables implements the strict tie-break of spec.md §5: if a's
// score is strictly greater than b's, b wins; otherwise a (the incumbent)
// wins, including on equality.
func compareTables(a, b Table) Table {
	if a.Score > b.Score {
		return b
	}
	return a
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func without(xs []int, bad ...int) []int {
	out := make([]int, 0, len(xs))
	for _, v := range xs {
		skip := false
		for _, b := range bad {
			if v == b {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, v)
		}
	}
	return out
}

func applyResult(tbl Table, instIdx int, m moves.Move, res moves.Result) Table {
	newScore := score.CompCV(res.Nodes)
	old, _ := tbl.Instances.Find(instIdx)
	p := Placement{
		InstanceIdx: instIdx,
		OldPri:      old.PriNode,
		OldSec:      old.SecNode,
		NewPri:      res.NewPri,
		NewSec:      res.NewSec,
		Move:        m,
		Score:       newScore,
	}
	placements := make([]Placement, 0, len(tbl.Placements)+1)
	placements = append(placements, p)
	placements = append(placements, tbl.Placements...)
	return Table{Nodes: res.Nodes, Instances: res.Instances, Score: newScore, Placements: placements}
}

// CheckInstanceMove evaluates every enabled move for a single instance
// against candidateNodes and returns the best table found, or tbl
// unchanged if nothing improved on it (per the compareTables tie-break,
// "improved" here just means "compared and retained").
func CheckInstanceMove(candidateNodes []int, diskMoves, instMoves bool, tbl Table, instIdx int) Table {
	inst, ok := tbl.Instances.Find(instIdx)
	if !ok {
		return tbl
	}
	opdx, osdx := inst.PriNode, inst.SecNode
	candidates := without(candidateNodes, opdx, osdx)
	secondaryIsCandidate := osdx != cluster.NoSecondary && containsInt(candidateNodes, osdx)

	best := tbl

	if inst.Mirror() == cluster.MirrorInternal && instMoves && secondaryIsCandidate {
		if res, _, ok := moves.ApplyMove(tbl.Nodes, tbl.Instances, instIdx, moves.Move{Kind: moves.Failover}); ok {
			candidate := applyResult(tbl, instIdx, moves.Move{Kind: moves.Failover}, res)
			best = compareTables(best, candidate)
		}
	}

	if diskMoves {
		for _, tdx := range candidates {
			for _, m := range moves.PossibleMoves(inst.Mirror(), secondaryIsCandidate, instMoves, tdx) {
				res, _, ok := moves.ApplyMove(tbl.Nodes, tbl.Instances, instIdx, m)
				if !ok {
					continue
				}
				candidate := applyResult(tbl, instIdx, m, res)
				best = compareTables(best, candidate)
			}
		}
	}

	return best
}

// CheckMove evaluates CheckInstanceMove for every victim in parallel and
// returns the minimum-score result (first-seen-wins on ties, where "first"
// follows victims' input order). If no victim produced any progress
// (placement-list length unchanged), the input table is returned as-is.
func CheckMove(candidateNodes []int, diskMoves, instMoves bool, tbl Table, victims []int) Table {
	if len(victims) == 0 {
		return tbl
	}

	results := make([]Table, len(victims))
	var wg sync.WaitGroup
	for i, v := range victims {
		wg.Add(1)
		go func(i, v int) {
			defer wg.Done()
			results[i] = CheckInstanceMove(candidateNodes, diskMoves, instMoves, tbl, v)
		}(i, v)
	}
	wg.Wait()

	best := tbl
	for _, r := range results {
		best = compareTables(best, r)
	}
	if len(best.Placements) == len(tbl.Placements) {
		return tbl
	}
	return best
}

// movableAutoBalance is the default victim filter: movable && autoBalance
// instances, additionally restricted (when evacMode is set) to those with
// any node (primary or secondary) in the offline set.
func movableAutoBalance(il cluster.InstanceList, nl cluster.NodeList, evacMode bool) []int {
	var out []int
	for _, inst := range il.Elems() {
		if !inst.Movable || !inst.AutoBalance {
			continue
		}
		if evacMode {
			onOffline := false
			if n, ok := nl.Find(inst.PriNode); ok && n.Offline {
				onOffline = true
			}
			if inst.SecNode != cluster.NoSecondary {
				if n, ok := nl.Find(inst.SecNode); ok && n.Offline {
					onOffline = true
				}
			}
			if !onOffline {
				continue
			}
		}
		out = append(out, inst.Idx)
	}
	return out
}

func onlineNodes(nl cluster.NodeList) []int {
	var out []int
	for _, n := range nl.Elems() {
		if !n.Offline {
			out = append(out, n.Idx)
		}
	}
	return out
}

// TryBalance runs one balancing iteration: it evaluates every movable,
// auto-balanced instance (restricted to offline-hosted instances in
// evacMode) against every online node, and accepts the result only if the
// resulting score strictly improves and either the starting score exceeds
// mgLimit or the absolute gain is at least minGain. progressed reports
// whether the result was accepted.
func TryBalance(tbl Table, diskMoves, instMoves, evacMode bool, mgLimit, minGain float64) (result Table, progressed bool) {
	victims := movableAutoBalance(tbl.Instances, tbl.Nodes, evacMode)
	candidates := onlineNodes(tbl.Nodes)

	out := CheckMove(candidates, diskMoves, instMoves, tbl, victims)
	iniCV, finCV := tbl.Score, out.Score

	if finCV < iniCV && (iniCV > mgLimit || iniCV-finCV >= minGain) {
		return out, true
	}
	return tbl, false
}

// DoNextBalance reports whether another balancing round should run: the
// round budget (maxRounds < 0 means unbounded) is not exhausted and the
// score has not yet reached minScore.
func DoNextBalance(tbl Table, maxRounds int, minScore float64) bool {
	withinBudget := maxRounds < 0 || len(tbl.Placements) < maxRounds
	return withinBudget && tbl.Score > minScore
}

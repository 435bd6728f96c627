// Package alloc implements the allocation search (C4): placing a single
// new instance onto one node (non-mirrored) or a primary+secondary pair
// (mirrored), aggregating failures into a histogram, and picking the
// candidate with the lowest resulting score.
package alloc

import (
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
	"github.com/hsalcedo/clusterbal/pkg/cluster/score"
)

// Element is one successful allocation: the resulting snapshot, the placed
// instance, the affected node snapshots (post-move), and the resulting
// cluster score.
type Element struct {
	Nodes     cluster.NodeList
	Instance  cluster.Instance
	Affected  []cluster.Node
	Score     float64
}

// Solution aggregates every candidate tried during a search: a failure
// histogram by FailMode, a success count, the best Element seen, and a log.
type Solution struct {
	Failures map[cluster.FailMode]int
	Success  int
	Best     *Element
	Log      []string
}

func emptySolution() Solution {
	return Solution{Failures: map[cluster.FailMode]int{}}
}

// bestAllocElement implements the tie-break rule of spec.md §5: both nil is
// nil; either nil picks the other; when both are present the incumbent (a)
// wins on equal score.
func bestAllocElement(a, b *Element) *Element {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.Score < a.Score {
		return b
	}
	return a
}

// sumAllocs reduces two solutions into one: failures add, success counts
// add, the best element is picked by bestAllocElement (a is the incumbent),
// and logs concatenate as b++a — matching spec.md §5's sumAllocs reduction,
// used for both the sequential fold over single-node candidates and the
// parallel fold over node pairs.
func sumAllocs(a, b Solution) Solution {
	out := emptySolution()
	for k, v := range a.Failures {
		out.Failures[k] += v
	}
	for k, v := range b.Failures {
		out.Failures[k] += v
	}
	out.Success = a.Success + b.Success
	out.Best = bestAllocElement(a.Best, b.Best)
	out.Log = make([]string, 0, len(a.Log)+len(b.Log))
	out.Log = append(out.Log, b.Log...)
	out.Log = append(out.Log, a.Log...)
	return out
}

func failSolution(fm cluster.FailMode) Solution {
	s := emptySolution()
	s.Failures[fm] = 1
	return s
}

func okSolution(el Element) Solution {
	s := emptySolution()
	s.Success = 1
	s.Best = &el
	return s
}

// AllocateOnSingle places inst as a non-mirrored primary on node ndx.
func AllocateOnSingle(nl cluster.NodeList, inst cluster.Instance, ndx int) (Element, cluster.FailMode, bool) {
	n, ok := nl.Find(ndx)
	if !ok {
		return Element{}, cluster.FailGroup, false
	}
	if fm, ok := cluster.InstMatchesPolicy(inst, n.Policy, n.ExclStorage); !ok {
		return Element{}, fm, false
	}
	newN, fm, ok := cluster.AddPri(n, inst)
	if !ok {
		return Element{}, fm, false
	}
	inst2 := inst.WithPlacement(ndx, cluster.NoSecondary)
	nl2 := nl.Add(ndx, newN)
	return Element{
		Nodes:    nl2,
		Instance: inst2,
		Affected: []cluster.Node{newN},
		Score:    score.CompCV(nl2),
	}, 0, true
}

// AllocateOnPair places inst as a mirrored primary/secondary pair.
func AllocateOnPair(nl cluster.NodeList, inst cluster.Instance, pdx, sdx int) (Element, cluster.FailMode, bool) {
	p, ok := nl.Find(pdx)
	if !ok {
		return Element{}, cluster.FailGroup, false
	}
	if fm, ok := cluster.InstMatchesPolicy(inst, p.Policy, p.ExclStorage); !ok {
		return Element{}, fm, false
	}
	s, ok := nl.Find(sdx)
	if !ok {
		return Element{}, cluster.FailGroup, false
	}
	newP, fm, ok := cluster.AddPri(p, inst)
	if !ok {
		return Element{}, fm, false
	}
	newS, fm, ok := cluster.AddSec(s, inst, pdx)
	if !ok {
		return Element{}, fm, false
	}
	inst2 := inst.WithPlacement(pdx, sdx)
	nl2 := nl.AddTwo(pdx, newP, sdx, newS)
	return Element{
		Nodes:    nl2,
		Instance: inst2,
		Affected: []cluster.Node{newP, newS},
		Score:    score.CompCV(nl2),
	}, 0, true
}

// Candidate is a single allocation target: Secondaries is empty for a
// single-node (non-mirrored) candidate, and holds the allowed secondaries
// for a primary/secondary pair candidate.
type Candidate struct {
	Primary     int
	Secondaries []int
}

var (
	ErrNoOnlineNodes      = errors.New("No online nodes")
	ErrNotEnoughOnlineNodes = errors.New("Not enough online nodes")
)

// GenAllocNodes builds the candidate list for an instance needing `count`
// nodes (1 or 2), optionally dropping nodes whose group is not allocable.
func GenAllocNodes(groups map[int]cluster.Group, nl cluster.NodeList, count int, dropUnallocable bool) ([]Candidate, error) {
	online := make([]cluster.Node, 0, nl.Size())
	for _, n := range nl.Elems() {
		if n.Offline {
			continue
		}
		if dropUnallocable {
			if g, ok := groups[n.Group]; ok && !g.AllocPolicy.IsAllocable() {
				continue
			}
		}
		online = append(online, n)
	}
	if len(online) == 0 {
		return nil, ErrNoOnlineNodes
	}

	switch count {
	case 1:
		out := make([]Candidate, len(online))
		for i, n := range online {
			out[i] = Candidate{Primary: n.Idx}
		}
		return out, nil
	case 2:
		out := make([]Candidate, 0, len(online))
		for _, p := range online {
			var secs []int
			for _, s := range online {
				if s.Idx == p.Idx || s.Group != p.Group {
					continue
				}
				secs = append(secs, s.Idx)
			}
			if len(secs) == 0 {
				continue
			}
			out = append(out, Candidate{Primary: p.Idx, Secondaries: secs})
		}
		if len(out) == 0 {
			return nil, ErrNotEnoughOnlineNodes
		}
		return out, nil
	default:
		return nil, errors.New("count must be 1 or 2")
	}
}

// TryAlloc evaluates every candidate and aggregates the result. Single-node
// candidates (Secondaries == nil) are folded sequentially in ascending
// primary-index order; pair candidates are evaluated in parallel across primaries (one
// goroutine per primary, each trying every allowed secondary sequentially)
// and reduced via sumAllocs in ascending primary-index order, so the result
// is deterministic and the first-seen primary wins ties (spec.md §9).
func TryAlloc(nl cluster.NodeList, inst cluster.Instance, candidates []Candidate) (Solution, error) {
	if len(candidates) == 0 {
		return Solution{}, ErrNotEnoughOnlineNodes
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Primary < sorted[j].Primary })

	isPair := sorted[0].Secondaries != nil

	if !isPair {
		acc := emptySolution()
		for _, c := range sorted {
			acc = sumAllocs(acc, trySingleCandidate(nl, inst, c.Primary))
		}
		return acc, nil
	}

	results := make([]Solution, len(sorted))
	var wg sync.WaitGroup
	for i, c := range sorted {
		wg.Add(1)
		go func(i int, c Candidate) {
			defer wg.Done()
			results[i] = tryPairCandidate(nl, inst, c)
		}(i, c)
	}
	wg.Wait()

	acc := emptySolution()
	for _, r := range results {
		acc = sumAllocs(acc, r)
	}
	return acc, nil
}

func trySingleCandidate(nl cluster.NodeList, inst cluster.Instance, ndx int) Solution {
	el, fm, ok := AllocateOnSingle(nl, inst, ndx)
	if !ok {
		return failSolution(fm)
	}
	return okSolution(el)
}

// tryPairCandidate folds over every allowed secondary for a single primary,
// keeping the best (lowest-score, first-seen-wins-ties) result — mirroring
// the per-primary reduction the parallel pair search performs before the
// cross-primary sumAllocs reduction.
func tryPairCandidate(nl cluster.NodeList, inst cluster.Instance, c Candidate) Solution {
	acc := emptySolution()
	for _, sdx := range c.Secondaries {
		el, fm, ok := AllocateOnPair(nl, inst, c.Primary, sdx)
		if !ok {
			acc = sumAllocs(acc, failSolution(fm))
			continue
		}
		acc = sumAllocs(acc, okSolution(el))
	}
	return acc
}

// Describe summarizes the failure histogram as "<FailMode>: <count>" lines,
// in FailModeOrder.
func Describe(s Solution) []string {
	var out []string
	for _, fm := range cluster.FailModeOrder {
		if c := s.Failures[fm]; c > 0 {
			out = append(out, fm.String()+": "+strconv.Itoa(c))
		}
	}
	return out
}

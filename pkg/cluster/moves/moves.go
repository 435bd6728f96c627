// Package moves implements the move algebra (C3): a closed, six-variant
// algebraic type describing every way an instance's placement can change,
// and ApplyMove, which composes AddPri/AddSec/RemovePri/RemoveSec exactly
// as spec.md §4.3 prescribes for each variant.
package moves

import (
	"github.com/hsalcedo/clusterbal/pkg/cluster"
)

// Kind identifies one of the six move variants. The set is closed —
// exhaustive switches are required wherever Kind is matched.
type Kind int

const (
	Failover Kind = iota
	FailoverToAny
	ReplacePrimary
	ReplaceSecondary
	ReplaceAndFailover
	FailoverAndReplace
)

// Move is a single instance relocation. Target is the destination node
// index; it is ignored for Failover, which always swaps with the existing
// secondary.
type Move struct {
	Kind   Kind
	Target int
}

func (m Move) String() string {
	switch m.Kind {
	case Failover:
		return "failover"
	case FailoverToAny:
		return "failover-to-any"
	case ReplacePrimary:
		return "replace-primary"
	case ReplaceSecondary:
		return "replace-secondary"
	case ReplaceAndFailover:
		return "replace-and-failover"
	case FailoverAndReplace:
		return "failover-and-replace"
	default:
		return "unknown-move"
	}
}

// Result is the outcome of a successful ApplyMove: the new snapshot plus
// the instance's new primary/secondary placement.
type Result struct {
	Nodes     cluster.NodeList
	Instances cluster.InstanceList
	NewPri    int
	NewSec    int
}

// ApplyMove transforms nl/il by relocating instIdx according to move,
// returning the new snapshot or a typed failure. If any composing
// capacity-arithmetic step fails, the whole move fails with that step's
// FailMode and neither nl nor il is touched.
func ApplyMove(nl cluster.NodeList, il cluster.InstanceList, instIdx int, move Move) (Result, cluster.FailMode, bool) {
	inst, ok := il.Find(instIdx)
	if !ok {
		return Result{}, cluster.FailGroup, false
	}

	switch move.Kind {
	case Failover:
		return applyFailover(nl, il, inst)
	case FailoverToAny:
		return applyFailoverToAny(nl, il, inst, move.Target)
	case ReplacePrimary:
		return applyReplacePrimary(nl, il, inst, move.Target)
	case ReplaceSecondary:
		return applyReplaceSecondary(nl, il, inst, move.Target)
	case ReplaceAndFailover:
		return applyReplaceAndFailover(nl, il, inst, move.Target)
	case FailoverAndReplace:
		return applyFailoverAndReplace(nl, il, inst, move.Target)
	default:
		return Result{}, cluster.FailGroup, false
	}
}

func applyFailover(nl cluster.NodeList, il cluster.InstanceList, inst cluster.Instance) (Result, cluster.FailMode, bool) {
	if inst.Mirror() != cluster.MirrorInternal || inst.SecNode == cluster.NoSecondary {
		return Result{}, cluster.FailDiskTemplate, false
	}
	opdx, osdx := inst.PriNode, inst.SecNode
	op, _ := nl.Find(opdx)
	os, _ := nl.Find(osdx)
	force := op.Offline

	op2 := cluster.RemovePri(op, inst)
	os2 := cluster.RemoveSec(os, inst)

	newPriNode, fm, ok := cluster.AddPriEx(force, os2, inst)
	if !ok {
		return Result{}, fm, false
	}
	newSecNode, fm, ok := cluster.AddSecEx(force, op2, inst, osdx)
	if !ok {
		return Result{}, fm, false
	}

	nl2 := nl.AddTwo(opdx, newSecNode, osdx, newPriNode)
	inst2 := inst.WithPlacement(osdx, opdx)
	il2 := il.Add(inst.Idx, inst2)
	return Result{Nodes: nl2, Instances: il2, NewPri: osdx, NewSec: opdx}, 0, true
}

func applyFailoverToAny(nl cluster.NodeList, il cluster.InstanceList, inst cluster.Instance, tdx int) (Result, cluster.FailMode, bool) {
	if inst.Mirror() != cluster.MirrorExternal {
		return Result{}, cluster.FailDiskTemplate, false
	}
	opdx := inst.PriNode
	op, _ := nl.Find(opdx)
	tgt, _ := nl.Find(tdx)
	force := op.Offline

	op2 := cluster.RemovePri(op, inst)
	newTgt, fm, ok := cluster.AddPriEx(force, tgt, inst)
	if !ok {
		return Result{}, fm, false
	}

	nl2 := nl.AddTwo(opdx, op2, tdx, newTgt)
	inst2 := inst.WithPlacement(tdx, inst.SecNode)
	il2 := il.Add(inst.Idx, inst2)
	return Result{Nodes: nl2, Instances: il2, NewPri: tdx, NewSec: inst.SecNode}, 0, true
}

func applyReplacePrimary(nl cluster.NodeList, il cluster.InstanceList, inst cluster.Instance, newPdx int) (Result, cluster.FailMode, bool) {
	if inst.Mirror() != cluster.MirrorInternal || inst.SecNode == cluster.NoSecondary {
		return Result{}, cluster.FailDiskTemplate, false
	}
	opdx, osdx := inst.PriNode, inst.SecNode
	op, _ := nl.Find(opdx)
	os, _ := nl.Find(osdx)
	tgt, _ := nl.Find(newPdx)
	force := op.Offline

	op2 := cluster.RemovePri(op, inst)
	os2 := cluster.RemoveSec(os, inst)

	// Tentatively migrate through the secondary to validate feasibility,
	// then undo it; only the capacity check matters here.
	osTent, fm, ok := cluster.AddPriEx(force, os2, inst)
	if !ok {
		return Result{}, fm, false
	}
	os3 := cluster.RemovePri(osTent, inst)

	tgtNew, fm, ok := cluster.AddPriEx(force, tgt, inst)
	if !ok {
		return Result{}, fm, false
	}
	osFinal, fm, ok := cluster.AddSecEx(force, os3, inst, newPdx)
	if !ok {
		return Result{}, fm, false
	}

	nl2 := nl.Add(opdx, op2)
	nl2 = nl2.AddTwo(osdx, osFinal, newPdx, tgtNew)
	inst2 := inst.WithPlacement(newPdx, osdx)
	il2 := il.Add(inst.Idx, inst2)
	return Result{Nodes: nl2, Instances: il2, NewPri: newPdx, NewSec: osdx}, 0, true
}

func applyReplaceSecondary(nl cluster.NodeList, il cluster.InstanceList, inst cluster.Instance, newSdx int) (Result, cluster.FailMode, bool) {
	if inst.Mirror() != cluster.MirrorInternal || inst.SecNode == cluster.NoSecondary {
		return Result{}, cluster.FailDiskTemplate, false
	}
	opdx, osdx := inst.PriNode, inst.SecNode
	os, _ := nl.Find(osdx)
	tgt, _ := nl.Find(newSdx)
	force := os.Offline

	os2 := cluster.RemoveSec(os, inst)
	tgtNew, fm, ok := cluster.AddSecEx(force, tgt, inst, opdx)
	if !ok {
		return Result{}, fm, false
	}

	nl2 := nl.AddTwo(osdx, os2, newSdx, tgtNew)
	inst2 := inst.WithPlacement(opdx, newSdx)
	il2 := il.Add(inst.Idx, inst2)
	return Result{Nodes: nl2, Instances: il2, NewPri: opdx, NewSec: newSdx}, 0, true
}

func applyReplaceAndFailover(nl cluster.NodeList, il cluster.InstanceList, inst cluster.Instance, newPdx int) (Result, cluster.FailMode, bool) {
	if inst.Mirror() != cluster.MirrorInternal || inst.SecNode == cluster.NoSecondary {
		return Result{}, cluster.FailDiskTemplate, false
	}
	opdx, osdx := inst.PriNode, inst.SecNode
	op, _ := nl.Find(opdx)
	os, _ := nl.Find(osdx)
	tgt, _ := nl.Find(newPdx)
	force := os.Offline

	op2 := cluster.RemovePri(op, inst)
	os2 := cluster.RemoveSec(os, inst)

	tgtNew, fm, ok := cluster.AddPriEx(force, tgt, inst)
	if !ok {
		return Result{}, fm, false
	}
	opFinal, fm, ok := cluster.AddSecEx(force, op2, inst, newPdx)
	if !ok {
		return Result{}, fm, false
	}

	nl2 := nl.Add(osdx, os2)
	nl2 = nl2.AddTwo(opdx, opFinal, newPdx, tgtNew)
	inst2 := inst.WithPlacement(newPdx, opdx)
	il2 := il.Add(inst.Idx, inst2)
	return Result{Nodes: nl2, Instances: il2, NewPri: newPdx, NewSec: opdx}, 0, true
}

func applyFailoverAndReplace(nl cluster.NodeList, il cluster.InstanceList, inst cluster.Instance, newSdx int) (Result, cluster.FailMode, bool) {
	if inst.Mirror() != cluster.MirrorInternal || inst.SecNode == cluster.NoSecondary {
		return Result{}, cluster.FailDiskTemplate, false
	}
	opdx, osdx := inst.PriNode, inst.SecNode
	op, _ := nl.Find(opdx)
	os, _ := nl.Find(osdx)
	tgt, _ := nl.Find(newSdx)
	force := op.Offline

	op2 := cluster.RemovePri(op, inst)
	os2 := cluster.RemoveSec(os, inst)

	osFinal, fm, ok := cluster.AddPriEx(force, os2, inst)
	if !ok {
		return Result{}, fm, false
	}
	tgtNew, fm, ok := cluster.AddSecEx(force, tgt, inst, osdx)
	if !ok {
		return Result{}, fm, false
	}

	nl2 := nl.Add(opdx, op2)
	nl2 = nl2.AddTwo(osdx, osFinal, newSdx, tgtNew)
	inst2 := inst.WithPlacement(osdx, newSdx)
	il2 := il.Add(inst.Idx, inst2)
	return Result{Nodes: nl2, Instances: il2, NewPri: osdx, NewSec: newSdx}, 0, true
}

// PossibleMoves enumerates which of the six variants are offered for a
// given target tdx, per the table in spec.md §4.3.
func PossibleMoves(mirror cluster.MirrorType, secondaryIsCandidate, instanceMovesAllowed bool, tdx int) []Move {
	switch mirror {
	case cluster.MirrorNone:
		return nil
	case cluster.MirrorExternal:
		if !instanceMovesAllowed {
			return nil
		}
		return []Move{{Kind: FailoverToAny, Target: tdx}}
	case cluster.MirrorInternal:
		if !instanceMovesAllowed {
			return []Move{{Kind: ReplaceSecondary, Target: tdx}}
		}
		if secondaryIsCandidate {
			return []Move{
				{Kind: ReplaceSecondary, Target: tdx},
				{Kind: ReplaceAndFailover, Target: tdx},
				{Kind: ReplacePrimary, Target: tdx},
				{Kind: FailoverAndReplace, Target: tdx},
			}
		}
		return []Move{
			{Kind: ReplaceSecondary, Target: tdx},
			{Kind: ReplaceAndFailover, Target: tdx},
		}
	default:
		return nil
	}
}

// Package planfmt renders a balancer/evacuation plan as the literal
// human-readable text described in spec.md §6: one line per placement,
// plus a jobset-batched shell command listing for the external job system.
//
// This package only formats; it never executes or submits anything.
package planfmt

import (
	"fmt"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
	"github.com/hsalcedo/clusterbal/pkg/cluster/balancer"
	"github.com/hsalcedo/clusterbal/pkg/cluster/moves"
)

// FormatMove renders a move the same abbreviated way printSolutionLine's
// moves column does: "f" (Failover), "fa:<c>" (FailoverToAny),
// "f r:<c> f" (ReplacePrimary), "r:<c>" (ReplaceSecondary), "r:<c> f"
// (ReplaceAndFailover), "f r:<c>" (FailoverAndReplace) — one token per
// opcode IMoveToJob would emit for the same move, in the same order.
func FormatMove(nl cluster.NodeList, m moves.Move) string {
	name := cluster.NameOf(nl, m.Target)
	switch m.Kind {
	case moves.Failover:
		return "f"
	case moves.FailoverToAny:
		return "fa:" + name
	case moves.ReplacePrimary:
		return "f r:" + name + " f"
	case moves.ReplaceSecondary:
		return "r:" + name
	case moves.ReplaceAndFailover:
		return "r:" + name + " f"
	case moves.FailoverAndReplace:
		return "f r:" + name
	default:
		return "?"
	}
}

func locLabel(nl cluster.NodeList, pri, sec int) string {
	p := cluster.NameOf(nl, pri)
	if sec == cluster.NoSecondary {
		return p
	}
	return p + "/" + cluster.NameOf(nl, sec)
}

// PrintSolutionLine renders one placement row using the exact format
// string from spec.md §6: "  %3d. %-*s %-*s => %-*s %12.8f a=%s".
func PrintSolutionLine(nl cluster.NodeList, il cluster.InstanceList, index int, p balancer.Placement, nameWidth, moveWidth, locWidth int) string {
	inst, _ := il.Find(p.InstanceIdx)
	newLoc := locLabel(nl, p.NewPri, p.NewSec)
	move := FormatMove(nl, p.Move)
	return fmt.Sprintf("  %3d. %-*s %-*s => %-*s %12.8f a=%s",
		index, nameWidth, inst.Name, moveWidth, move, locWidth, newLoc, p.Score, inst.Alias)
}

// PrintSolutionLines renders a full (chronological) placement list.
func PrintSolutionLines(nl cluster.NodeList, il cluster.InstanceList, placements []balancer.Placement) []string {
	nameWidth, moveWidth, locWidth := 0, 0, 0
	for _, p := range placements {
		inst, _ := il.Find(p.InstanceIdx)
		if len(inst.Name) > nameWidth {
			nameWidth = len(inst.Name)
		}
		if l := len(FormatMove(nl, p.Move)); l > moveWidth {
			moveWidth = l
		}
		if l := len(locLabel(nl, p.NewPri, p.NewSec)); l > locWidth {
			locWidth = l
		}
	}
	out := make([]string, len(placements))
	for i, p := range placements {
		out[i] = PrintSolutionLine(nl, il, i+1, p, nameWidth, moveWidth, locWidth)
	}
	return out
}

// Chronological reverses a balancer's newest-first placement list into the
// order the moves actually happened.
func Chronological(placements []balancer.Placement) []balancer.Placement {
	out := make([]balancer.Placement, len(placements))
	for i, p := range placements {
		out[len(placements)-1-i] = p
	}
	return out
}

package planfmt

import (
	"fmt"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
	"github.com/hsalcedo/clusterbal/pkg/cluster/balancer"
	"github.com/hsalcedo/clusterbal/pkg/cluster/moves"
)

func involvedNodes(p balancer.Placement) []int {
	set := map[int]bool{p.OldPri: true, p.NewPri: true}
	if p.OldSec != cluster.NoSecondary {
		set[p.OldSec] = true
	}
	if p.NewSec != cluster.NoSecondary {
		set[p.NewSec] = true
	}
	if p.Move.Kind != moves.Failover {
		set[p.Move.Target] = true
	}
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	return out
}

// SplitJobs groups a chronological placement list into jobsets: maximal
// batches whose involved-node sets are pairwise disjoint, per spec.md §6.
// A job joins the currently-open jobset iff its nodes are disjoint from
// every job already placed in it; otherwise the current jobset closes and
// a new one opens.
func SplitJobs(placements []balancer.Placement) [][]balancer.Placement {
	var jobsets [][]balancer.Placement
	var current []balancer.Placement
	currentNodes := map[int]bool{}

	for _, p := range placements {
		nodes := involvedNodes(p)
		disjoint := true
		for _, n := range nodes {
			if currentNodes[n] {
				disjoint = false
				break
			}
		}
		if len(current) == 0 || disjoint {
			current = append(current, p)
			for _, n := range nodes {
				currentNodes[n] = true
			}
			continue
		}
		jobsets = append(jobsets, current)
		current = []balancer.Placement{p}
		currentNodes = map[int]bool{}
		for _, n := range nodes {
			currentNodes[n] = true
		}
	}
	if len(current) > 0 {
		jobsets = append(jobsets, current)
	}
	return jobsets
}

// MergeJobs is the inverse of SplitJobs: it flattens jobsets back into a
// single chronological placement list.
func MergeJobs(jobsets [][]balancer.Placement) []balancer.Placement {
	var out []balancer.Placement
	for _, js := range jobsets {
		out = append(out, js...)
	}
	return out
}

func verb(inst cluster.Instance) string {
	if inst.Running {
		return "migrate"
	}
	return "failover"
}

func shellMigrate(v, instName string, target *string) string {
	if target == nil {
		return fmt.Sprintf("%s -f %s", v, instName)
	}
	return fmt.Sprintf("%s -f -n %s %s", v, *target, instName)
}

func shellReplace(instName, target string) string {
	return fmt.Sprintf("replace-disks -n %s %s", target, instName)
}

// ShellCommands renders the gnt-instance argument strings for applying m to
// instIdx, in the same opcode order IMoveToJob would use.
func ShellCommands(nl cluster.NodeList, il cluster.InstanceList, instIdx int, m moves.Move) []string {
	inst, _ := il.Find(instIdx)
	v := verb(inst)

	switch m.Kind {
	case moves.Failover:
		return []string{shellMigrate(v, inst.Name, nil)}
	case moves.FailoverToAny:
		t := cluster.NameOf(nl, m.Target)
		return []string{shellMigrate(v, inst.Name, &t)}
	case moves.ReplacePrimary:
		t := cluster.NameOf(nl, m.Target)
		return []string{shellMigrate(v, inst.Name, nil), shellReplace(inst.Name, t), shellMigrate(v, inst.Name, nil)}
	case moves.ReplaceSecondary:
		t := cluster.NameOf(nl, m.Target)
		return []string{shellReplace(inst.Name, t)}
	case moves.ReplaceAndFailover:
		t := cluster.NameOf(nl, m.Target)
		return []string{shellReplace(inst.Name, t), shellMigrate(v, inst.Name, nil)}
	case moves.FailoverAndReplace:
		t := cluster.NameOf(nl, m.Target)
		return []string{shellMigrate(v, inst.Name, nil), shellReplace(inst.Name, t)}
	default:
		return nil
	}
}

// FormatCmds renders a chronological placement list as the exact line
// shapes of spec.md §6: "echo jobset N, K jobs", "echo job N/M", "check",
// and one "gnt-instance <cmd>" line per shell command.
func FormatCmds(nl cluster.NodeList, il cluster.InstanceList, placements []balancer.Placement) []string {
	jobsets := SplitJobs(placements)
	var lines []string
	for jsi, js := range jobsets {
		lines = append(lines, fmt.Sprintf("echo jobset %d, %d jobs", jsi+1, len(js)))
		for ji, p := range js {
			lines = append(lines, fmt.Sprintf("echo job %d/%d", ji+1, len(js)))
			lines = append(lines, "check")
			for _, cmd := range ShellCommands(nl, il, p.InstanceIdx, p.Move) {
				lines = append(lines, "gnt-instance "+cmd)
			}
		}
	}
	return lines
}

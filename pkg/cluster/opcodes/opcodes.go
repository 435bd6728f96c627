// Package opcodes describes the external job-system opcode *shape* emitted
// for a move (spec.md §6). It never submits or executes anything; it only
// produces an ordered, data-only job list a caller hands to an external
// job-submission system.
package opcodes

import (
	"fmt"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
	"github.com/hsalcedo/clusterbal/pkg/cluster/moves"
)

const defaultMode = "default"

// Job is implemented by the two opcode templates.
type Job interface {
	isJob()
}

// OpInstanceMigrate requests a live migration (or, if AllowFailover and the
// instance cannot be live-migrated, a failover) of an instance. TargetNode
// is nil for a Failover (migrate to the existing secondary) and set for
// FailoverToAny.
type OpInstanceMigrate struct {
	InstanceName        string
	MigrationMode        string
	OldLiveMode          string
	TargetNode           *string
	AllowRuntimeChanges  bool
	IgnoreIPolicy        bool
	MigrationCleanup     bool
	IAllocator           *string
	AllowFailover        bool
}

func (OpInstanceMigrate) isJob() {}

// OpInstanceReplaceDisks requests replacing one mirror endpoint with
// RemoteNode.
type OpInstanceReplaceDisks struct {
	InstanceName  string
	EarlyRelease  bool
	IgnoreIPolicy bool
	Mode          string
	Disks         []int
	RemoteNode    *string
	IAllocator    *string
}

func (OpInstanceReplaceDisks) isJob() {}

func migrate(instName string, target *string) OpInstanceMigrate {
	return OpInstanceMigrate{
		InstanceName:  instName,
		MigrationMode: defaultMode,
		OldLiveMode:   defaultMode,
		TargetNode:    target,
		AllowFailover: true,
	}
}

func replace(instName string, remote string) OpInstanceReplaceDisks {
	return OpInstanceReplaceDisks{
		InstanceName: instName,
		Mode:         "ReplaceNewSecondary",
		RemoteNode:   &remote,
	}
}

// mustName resolves idx to a node name, panicking on an empty result — per
// spec.md §6, a node-name lookup that would yield an empty string at
// opcode-emission time is a programmer error, not recoverable input.
func mustName(nl cluster.NodeList, idx int) string {
	name := cluster.NameOf(nl, idx)
	if name == "" {
		panic(fmt.Sprintf("opcodes: empty node name for index %d", idx))
	}
	return name
}

// IMoveToJob produces the ordered opcode sequence for applying move to
// instance instIdx, per the table in spec.md §6.
func IMoveToJob(nl cluster.NodeList, il cluster.InstanceList, instIdx int, move moves.Move) []Job {
	inst, ok := il.Find(instIdx)
	if !ok || inst.Name == "" {
		panic("opcodes: empty instance name")
	}
	name := inst.Name

	switch move.Kind {
	case moves.Failover:
		return []Job{migrate(name, nil)}
	case moves.FailoverToAny:
		target := mustName(nl, move.Target)
		return []Job{migrate(name, &target)}
	case moves.ReplacePrimary:
		target := mustName(nl, move.Target)
		return []Job{migrate(name, nil), replace(name, target), migrate(name, nil)}
	case moves.ReplaceSecondary:
		target := mustName(nl, move.Target)
		return []Job{replace(name, target)}
	case moves.ReplaceAndFailover:
		target := mustName(nl, move.Target)
		return []Job{replace(name, target), migrate(name, nil)}
	case moves.FailoverAndReplace:
		target := mustName(nl, move.Target)
		return []Job{migrate(name, nil), replace(name, target)}
	default:
		panic("opcodes: unknown move kind")
	}
}

// Package app wires the clusterbal cobra command tree: one subcommand per
// core operation (balance, alloc, evac, group-change) plus a serve command
// that exposes Prometheus metrics for a long-running planner.
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hsalcedo/clusterbal/pkg/snapshotio"
)

// NewRootCommand builds the clusterbal command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "clusterbal",
		Short: "Balance, allocate, and evacuate instances across a node cluster",
	}

	root.AddCommand(newBalanceCommand())
	root.AddCommand(newAllocCommand())
	root.AddCommand(newEvacCommand())
	root.AddCommand(newGroupChangeCommand())
	root.AddCommand(newServeCommand())

	return root
}

// snapshotFlags is embedded by every subcommand that reads a cluster
// snapshot file.
type snapshotFlags struct {
	path string
}

func (f *snapshotFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.path, "snapshot", "", "path to a YAML cluster snapshot file")
}

func (f *snapshotFlags) load() (snapshot, error) {
	if f.path == "" {
		return snapshot{}, fmt.Errorf("--snapshot is required")
	}
	nl, il, groups, err := snapshotio.Load(f.path)
	if err != nil {
		return snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snapshot{nl: nl, il: il, groups: groups}, nil
}

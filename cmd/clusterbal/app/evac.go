package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hsalcedo/clusterbal/pkg/cluster/evac"
)

func parseIdxList(csv string) []int {
	if csv == "" {
		return nil
	}
	var out []int
	for _, s := range strings.Split(csv, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func newEvacCommand() *cobra.Command {
	var sf snapshotFlags
	var nodesCSV, instancesCSV, mode string

	cmd := &cobra.Command{
		Use:   "evac",
		Short: "Relocate instances off a set of nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := sf.load()
			if err != nil {
				return err
			}
			m, ok := evacModeByName[mode]
			if !ok {
				return fmt.Errorf("unknown evac mode %q", mode)
			}

			sol := evac.TryNodeEvac(snap.nl, snap.il, m, parseIdxList(nodesCSV), parseIdxList(instancesCSV))
			printEvacSolution(cmd, sol.Moved, sol.Failed)
			return nil
		},
	}

	sf.register(cmd.Flags())
	cmd.Flags().StringVar(&nodesCSV, "nodes", "", "comma-separated node indices to evacuate")
	cmd.Flags().StringVar(&instancesCSV, "instances", "", "comma-separated instance indices to relocate")
	cmd.Flags().StringVar(&mode, "mode", "change-all", "change-primary, change-secondary, or change-all")

	return cmd
}

func newGroupChangeCommand() *cobra.Command {
	var sf snapshotFlags
	var groupsCSV, instancesCSV string
	var dropUnallocable bool

	cmd := &cobra.Command{
		Use:   "group-change",
		Short: "Relocate instances into a different node group",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := sf.load()
			if err != nil {
				return err
			}
			sol := evac.TryChangeGroup(snap.nl, snap.il, snap.groups, parseIdxList(groupsCSV), parseIdxList(instancesCSV), dropUnallocable)
			printEvacSolution(cmd, sol.Moved, sol.Failed)
			return nil
		},
	}

	sf.register(cmd.Flags())
	cmd.Flags().StringVar(&groupsCSV, "groups", "", "comma-separated candidate landing group indices (empty means all)")
	cmd.Flags().StringVar(&instancesCSV, "instances", "", "comma-separated instance indices to relocate")
	cmd.Flags().BoolVar(&dropUnallocable, "drop-unallocable", true, "drop Unallocable groups from candidacy")

	return cmd
}

func printEvacSolution(cmd *cobra.Command, moved []evac.MovedInstance, failed []evac.FailedInstance) {
	for _, m := range moved {
		fmt.Fprintf(cmd.OutOrStdout(), "moved instance %d -> group %d (pri=%d sec=%d)\n", m.InstanceIdx, m.GroupIdx, m.NewPri, m.NewSec)
	}
	for _, f := range failed {
		fmt.Fprintf(cmd.OutOrStdout(), "failed instance %d: %s\n", f.InstanceIdx, f.Reason)
	}
}

var evacModeByName = map[string]evac.EvacMode{
	"change-primary":   evac.ChangePrimary,
	"change-secondary": evac.ChangeSecondary,
	"change-all":       evac.ChangeAll,
}

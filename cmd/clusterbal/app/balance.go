package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/hsalcedo/clusterbal/pkg/planner"
)

func newBalanceCommand() *cobra.Command {
	var sf snapshotFlags
	var cfg planner.Config

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Iteratively rebalance a cluster snapshot and print the resulting plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := sf.load()
			if err != nil {
				return err
			}

			p := planner.New(nil)
			_, lines, err := p.Run(context.Background(), klog.Background(), snap.nl, snap.il, cfg)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	sf.register(cmd.Flags())
	cmd.Flags().BoolVar(&cfg.DiskMoves, "disk-moves", true, "allow replace-disks style moves")
	cmd.Flags().BoolVar(&cfg.InstMoves, "inst-moves", true, "allow failover style moves")
	cmd.Flags().BoolVar(&cfg.EvacMode, "evac-mode", false, "restrict victims to instances on offline nodes")
	cmd.Flags().IntVar(&cfg.MaxRounds, "max-rounds", -1, "maximum balancing rounds, -1 for unbounded")
	cmd.Flags().Float64Var(&cfg.MinScore, "min-score", 0, "stop once the cluster score reaches this value")
	cmd.Flags().Float64Var(&cfg.MGLimit, "mg-limit", 0.01, "minimum starting score below which min-gain governs acceptance")
	cmd.Flags().Float64Var(&cfg.MinGain, "min-gain", 0.01, "minimum absolute score improvement required to accept a round")

	return cmd
}

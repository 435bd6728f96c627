package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
	"github.com/hsalcedo/clusterbal/pkg/cluster/alloc"
)

func newAllocCommand() *cobra.Command {
	var sf snapshotFlags
	var name string
	var mem, disk, vcpus int64
	var diskTemplate string
	var dropUnallocable bool

	cmd := &cobra.Command{
		Use:   "alloc",
		Short: "Find the best landing group and nodes for a new instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := sf.load()
			if err != nil {
				return err
			}

			tmpl, ok := diskTemplateByName[diskTemplate]
			if !ok {
				return fmt.Errorf("unknown disk template %q", diskTemplate)
			}
			inst := cluster.Instance{
				Idx:          snap.il.Size(),
				Name:         name,
				SecNode:      cluster.NoSecondary,
				Mem:          mem,
				Disk:         disk,
				VCPUs:        vcpus,
				DiskTemplate: tmpl,
				AutoBalance:  true,
				Movable:      true,
			}

			count := 1
			if inst.Mirror() == cluster.MirrorInternal {
				count = 2
			}

			group, sol, err := alloc.FindBestAllocGroup(snap.nl, snap.il, snap.groups, inst, count, dropUnallocable)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "landing group: %s\n", group.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "score: %s\n", strconv.FormatFloat(sol.Best.Score, 'f', 8, 64))
			for _, line := range alloc.Describe(sol) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	sf.register(cmd.Flags())
	cmd.Flags().StringVar(&name, "name", "", "name for the new instance")
	cmd.Flags().Int64Var(&mem, "mem", 0, "memory in MiB")
	cmd.Flags().Int64Var(&disk, "disk", 0, "disk in MiB")
	cmd.Flags().Int64Var(&vcpus, "vcpus", 1, "virtual CPUs")
	cmd.Flags().StringVar(&diskTemplate, "disk-template", "drbd", "disk template (diskless, plain, file, sharedfile, blockdev, rbd, ext, drbd)")
	cmd.Flags().BoolVar(&dropUnallocable, "drop-unallocable", true, "drop nodes in Unallocable groups from candidacy")

	return cmd
}

var diskTemplateByName = map[string]cluster.DiskTemplate{
	"diskless":   cluster.DiskTemplateDiskless,
	"plain":      cluster.DiskTemplatePlain,
	"file":       cluster.DiskTemplateFile,
	"sharedfile": cluster.DiskTemplateSharedFile,
	"blockdev":   cluster.DiskTemplateBlock,
	"rbd":        cluster.DiskTemplateRbd,
	"ext":        cluster.DiskTemplateExt,
	"drbd":       cluster.DiskTemplateDrbd8,
}

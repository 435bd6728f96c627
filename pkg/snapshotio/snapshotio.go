// Package snapshotio decodes a YAML cluster snapshot file into the cluster
// package's node/instance/group types, using sigs.k8s.io/yaml the way the
// rest of the ecosystem round-trips Kubernetes-shaped YAML through JSON
// struct tags rather than hand-rolling a YAML-specific schema.
package snapshotio

import (
	"os"

	"sigs.k8s.io/yaml"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
)

// nodeDoc and instDoc mirror cluster.Node/cluster.Instance's shape but stay
// decoupled from it, so the on-disk format does not have to track every
// bookkeeping field (PriTagCounts, SecMemDemand, ...) the live model
// maintains internally.
type nodeDoc struct {
	Idx         int     `json:"idx"`
	Name        string  `json:"name"`
	Group       int     `json:"group"`
	Offline     bool    `json:"offline"`
	TotalMem    int64   `json:"totalMem"`
	TotalDisk   int64   `json:"totalDisk"`
	TotalCPUs   int64   `json:"totalCPUs"`
	ExclStorage bool    `json:"exclStorage"`
	VCPURatio   float64 `json:"vcpuRatio"`
	MinDiskSize int64   `json:"minDiskSize"`
	MaxDiskSize int64   `json:"maxDiskSize"`
}

type instDoc struct {
	Idx          int      `json:"idx"`
	Name         string   `json:"name"`
	PriNode      int      `json:"priNode"`
	SecNode      int      `json:"secNode"`
	Mem          int64    `json:"mem"`
	Disk         int64    `json:"disk"`
	VCPUs        int64    `json:"vcpus"`
	DiskTemplate string   `json:"diskTemplate"`
	Running      bool     `json:"running"`
	AutoBalance  bool     `json:"autoBalance"`
	Movable      bool     `json:"movable"`
	Tags         []string `json:"tags,omitempty"`
}

type groupDoc struct {
	Idx         int    `json:"idx"`
	Name        string `json:"name"`
	AllocPolicy string `json:"allocPolicy"`
}

type document struct {
	Nodes     []nodeDoc     `json:"nodes"`
	Instances []instDoc     `json:"instances"`
	Groups    []groupDoc    `json:"groups,omitempty"`
}

var diskTemplates = map[string]cluster.DiskTemplate{
	"diskless":   cluster.DiskTemplateDiskless,
	"plain":      cluster.DiskTemplatePlain,
	"file":       cluster.DiskTemplateFile,
	"sharedfile": cluster.DiskTemplateSharedFile,
	"blockdev":   cluster.DiskTemplateBlock,
	"rbd":        cluster.DiskTemplateRbd,
	"ext":        cluster.DiskTemplateExt,
	"drbd":       cluster.DiskTemplateDrbd8,
}

var allocPolicies = map[string]cluster.AllocPolicy{
	"preferred":   cluster.AllocPreferred,
	"last_resort": cluster.AllocLastResort,
	"unallocable": cluster.AllocUnallocable,
}

// Load reads a YAML snapshot file at path and decodes it into a node list,
// instance list, and group table.
func Load(path string) (cluster.NodeList, cluster.InstanceList, map[int]cluster.Group, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return cluster.NodeList{}, cluster.InstanceList{}, nil, err
	}
	return Decode(raw)
}

// Decode parses raw YAML bytes into a node list, instance list, and group
// table.
func Decode(raw []byte) (cluster.NodeList, cluster.InstanceList, map[int]cluster.Group, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return cluster.NodeList{}, cluster.InstanceList{}, nil, err
	}

	nl := cluster.NewMap[cluster.Node]()
	for _, nd := range doc.Nodes {
		ratio := nd.VCPURatio
		if ratio <= 0 {
			ratio = 1
		}
		n := cluster.Node{
			Idx:         nd.Idx,
			Name:        nd.Name,
			Group:       nd.Group,
			Offline:     nd.Offline,
			TotalMem:    nd.TotalMem,
			TotalDisk:   nd.TotalDisk,
			TotalCPUs:   nd.TotalCPUs,
			HiCPU:       int64(float64(nd.TotalCPUs) * ratio),
			FreeMem:     nd.TotalMem,
			FreeDisk:    nd.TotalDisk,
			ExclStorage: nd.ExclStorage,
			Policy: cluster.Policy{
				VCPURatio:   ratio,
				MinDiskSize: nd.MinDiskSize,
				MaxDiskSize: nd.MaxDiskSize,
			},
		}
		nl = nl.Add(n.Idx, n)
	}

	il := cluster.NewMap[cluster.Instance]()
	for _, id := range doc.Instances {
		sec := id.SecNode
		if sec == 0 && id.DiskTemplate != "drbd" {
			sec = cluster.NoSecondary
		}
		inst := cluster.Instance{
			Idx:          id.Idx,
			Name:         id.Name,
			PriNode:      id.PriNode,
			SecNode:      sec,
			Mem:          id.Mem,
			Disk:         id.Disk,
			VCPUs:        id.VCPUs,
			DiskTemplate: diskTemplates[id.DiskTemplate],
			Running:      id.Running,
			AutoBalance:  id.AutoBalance,
			Movable:      id.Movable,
			Tags:         id.Tags,
		}
		il = il.Add(inst.Idx, inst)
	}

	groups := map[int]cluster.Group{}
	for _, gd := range doc.Groups {
		groups[gd.Idx] = cluster.Group{Idx: gd.Idx, Name: gd.Name, AllocPolicy: allocPolicies[gd.AllocPolicy]}
	}
	if len(groups) == 0 {
		groups[0] = cluster.Group{Idx: 0, Name: "default", AllocPolicy: cluster.AllocPreferred}
	}

	return nl, il, groups, nil
}

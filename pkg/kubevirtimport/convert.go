// Package kubevirtimport converts a live KubeVirt cluster snapshot (Nodes
// and VirtualMachineInstances) into the cluster package's Node/Instance
// model, the way multiobjective_full.go's convertToInternalFormat turns a
// plain Kubernetes node/pod snapshot into the scheduler-internal format.
package kubevirtimport

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	kubevirtv1 "kubevirt.io/api/core/v1"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
)

// defaultVCPURatio mirrors the teacher's convertToInternalFormat default
// when a node carries no explicit overcommit policy label.
const defaultVCPURatio = 4.0

// ConvertNodes maps Kubernetes Nodes to cluster.Node snapshots, one per
// node, indexed by their position in the input slice. A node's group is
// taken from the "topology.kubernetes.io/zone" label, falling back to
// group 0 when absent — every node without a zone label lands in the same
// default group.
func ConvertNodes(nodes []*corev1.Node, groupIndex map[string]int) (cluster.NodeList, map[string]int, error) {
	nl := cluster.NewMap[cluster.Node]()
	nameToIdx := make(map[string]int, len(nodes))

	for i, n := range nodes {
		memCap := n.Status.Capacity.Memory().Value() / (1024 * 1024)
		cpuCap := n.Status.Capacity.Cpu().MilliValue() / 1000
		diskCap := int64(0)
		if d, ok := n.Status.Capacity["ephemeral-storage"]; ok {
			diskCap = d.Value() / (1024 * 1024)
		}

		zone := n.Labels["topology.kubernetes.io/zone"]
		gdx := 0
		if groupIndex != nil {
			if g, ok := groupIndex[zone]; ok {
				gdx = g
			}
		}

		node := cluster.Node{
			Idx:       i,
			Name:      n.Name,
			Group:     gdx,
			Offline:   isNodeOffline(n),
			TotalMem:  memCap,
			TotalDisk: diskCap,
			TotalCPUs: cpuCap,
			FreeMem:   memCap,
			FreeDisk:  diskCap,
			Policy:    cluster.Policy{VCPURatio: defaultVCPURatio, MaxDiskSize: diskCap},
		}
		nl = nl.Add(i, node)
		nameToIdx[n.Name] = i
	}
	return nl, nameToIdx, nil
}

func isNodeOffline(n *corev1.Node) bool {
	for _, cond := range n.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status != corev1.ConditionTrue
		}
	}
	return true
}

// ConvertInstances maps VirtualMachineInstances, whatever their phase, to
// cluster.Instance snapshots (Running is set from the phase). Every VMI
// becomes a Diskless (External-mirror) primary with no secondary, on the
// node it currently runs on — KubeVirt's own storage layer (not DRBD) owns
// disk placement, so no secondary is modeled here.
func ConvertInstances(vmis []*kubevirtv1.VirtualMachineInstance, nodeIdx map[string]int) (cluster.InstanceList, error) {
	il := cluster.NewMap[cluster.Instance]()

	for i, vmi := range vmis {
		pdx, ok := nodeIdx[vmi.Status.NodeName]
		if !ok {
			return cluster.InstanceList{}, fmt.Errorf("kubevirtimport: vmi %q scheduled on unknown node %q", vmi.Name, vmi.Status.NodeName)
		}

		req := vmi.Spec.Domain.Resources.Requests
		memQty := req[corev1.ResourceMemory]
		cpuQty := req[corev1.ResourceCPU]

		inst := cluster.Instance{
			Idx:          i,
			Name:         vmi.Name,
			PriNode:      pdx,
			SecNode:      cluster.NoSecondary,
			Mem:          memQty.Value() / (1024 * 1024),
			VCPUs:        cpuQty.MilliValue() / 1000,
			DiskTemplate: cluster.DiskTemplateDiskless,
			Running:      vmi.Status.Phase == kubevirtv1.Running,
			Movable:      vmi.Spec.EvictionStrategy != nil && *vmi.Spec.EvictionStrategy == kubevirtv1.EvictionStrategyLiveMigrate,
			AutoBalance:  true,
		}
		il = il.Add(i, inst)
	}
	return il, nil
}

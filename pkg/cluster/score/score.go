// Package score implements the cluster variance scoring function (C2):
// compDetailedCV produces the 13-element metric vector, and compCV
// (and compCVNodes) reduce it to a single weighted total — lower is
// better.
package score

import (
	"math"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
)

// NumMetrics is the fixed width of the detailed metric vector.
const NumMetrics = 13

// Weights is the closed, ordered weight table compDetailedCV's metrics are
// combined with. Metric 6 (1-indexed: offline primaries) dominates so that
// evacuating offline nodes always outranks a purely cosmetic rebalance.
var Weights = [NumMetrics]float64{1, 1, 1, 1, 4, 16, 1, 1, 1, 1, 1, 2, 1}

// MetricNames labels each position of the detailed vector; pkg/clustermetrics
// uses them as metric labels.
var MetricNames = [NumMetrics]string{
	"std_dev_pmem",
	"std_dev_pdsk",
	"n1_instances",
	"std_dev_prem",
	"offline_instances",
	"offline_primaries",
	"std_dev_pcpu",
	"std_dev_load_cpu",
	"std_dev_load_mem",
	"std_dev_load_disk",
	"std_dev_load_net",
	"conflicting_primaries",
	"std_dev_spindles",
}

func stddev(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(n)
	var acc float64
	for _, v := range vals {
		d := v - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(n))
}

// CompDetailedCV computes the fixed 13-element metric vector over nodes.
func CompDetailedCV(nodes []cluster.Node) [NumMetrics]float64 {
	var online []cluster.Node
	for _, n := range nodes {
		if !n.Offline {
			online = append(online, n)
		}
	}

	pmem := make([]float64, len(online))
	pdsk := make([]float64, len(online))
	prem := make([]float64, len(online))
	pcpu := make([]float64, len(online))
	for i, n := range online {
		pmem[i] = n.PMem()
		pdsk[i] = n.PDsk()
		prem[i] = n.PRem()
		pcpu[i] = n.PCpu()
	}

	var n1Instances float64
	for _, n := range online {
		if n.FailN1() {
			n1Instances += float64(len(n.PriInstances) + len(n.SecInstances))
		}
	}

	var offlineInstances, offlinePrimaries float64
	for _, n := range nodes {
		if !n.Offline {
			continue
		}
		offlineInstances += float64(len(n.PriInstances) + len(n.SecInstances))
		offlinePrimaries += float64(len(n.PriInstances))
	}

	loadCPU := make([]float64, 0, len(online))
	loadMem := make([]float64, 0, len(online))
	loadDisk := make([]float64, 0, len(online))
	loadNet := make([]float64, 0, len(online))
	var poolCPU, poolMem, poolDisk, poolNet float64
	for _, n := range online {
		poolCPU += n.UtilLoad.CPU
		poolMem += n.UtilLoad.Mem
		poolDisk += n.UtilLoad.Disk
		poolNet += n.UtilLoad.Net
	}
	ratio := func(load, pool float64) float64 {
		if pool == 0 {
			return 0
		}
		return load / pool
	}
	for _, n := range online {
		loadCPU = append(loadCPU, ratio(n.UtilLoad.CPU, poolCPU))
		loadMem = append(loadMem, ratio(n.UtilLoad.Mem, poolMem))
		loadDisk = append(loadDisk, ratio(n.UtilLoad.Disk, poolDisk))
		loadNet = append(loadNet, ratio(n.UtilLoad.Net, poolNet))
	}

	var conflicting float64
	for _, n := range online {
		conflicting += float64(n.ConflictingPrimaries)
	}

	spindleRatios := make([]float64, len(online))
	for i, n := range online {
		spindleRatios[i] = n.SpindleRatio()
	}

	return [NumMetrics]float64{
		stddev(pmem),
		stddev(pdsk),
		n1Instances,
		stddev(prem),
		offlineInstances,
		offlinePrimaries,
		stddev(pcpu),
		stddev(loadCPU),
		stddev(loadMem),
		stddev(loadDisk),
		stddev(loadNet),
		conflicting,
		stddev(spindleRatios),
	}
}

// CompCVNodes reduces a detailed metric vector to the weighted total.
func CompCVNodes(nodes []cluster.Node) float64 {
	detailed := CompDetailedCV(nodes)
	var total float64
	for i, m := range detailed {
		total += Weights[i] * m
	}
	return total
}

// CompCV computes the cluster variance score over a NodeList. Reordering
// the underlying nodes never changes the result (testable property 2).
func CompCV(nl cluster.NodeList) float64 {
	return CompCVNodes(nl.Elems())
}

// Package clustermetrics exposes the balancer, allocator, and evacuator's
// internal counters as Prometheus collectors, so a running planner can be
// scraped the same way the rest of the cluster-management stack is.
package clustermetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
	"github.com/hsalcedo/clusterbal/pkg/cluster/alloc"
	"github.com/hsalcedo/clusterbal/pkg/cluster/score"
)

const namespace = "clusterbal"

// Collectors groups every metric this package registers. Construct with
// NewCollectors and register once with a prometheus.Registerer.
type Collectors struct {
	ClusterScore      prometheus.Gauge
	MetricComponents  *prometheus.GaugeVec
	BalancerRounds    prometheus.Counter
	BalancerGain      prometheus.Histogram
	AllocFailures     *prometheus.CounterVec
	AllocSuccesses    prometheus.Counter
	EvacuationsMoved  prometheus.Counter
	EvacuationsFailed prometheus.Counter
}

// NewCollectors builds every collector, unregistered.
func NewCollectors() *Collectors {
	return &Collectors{
		ClusterScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cluster_score",
			Help:      "Current weighted cluster-variance score (lower is better balanced).",
		}),
		MetricComponents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "score_component",
			Help:      "Per-metric contribution to the cluster-variance score.",
		}, []string{"metric"}),
		BalancerRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balancer_rounds_total",
			Help:      "Balancing rounds that strictly improved the cluster score.",
		}),
		BalancerGain: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "balancer_round_gain",
			Help:      "Score reduction achieved by each accepted balancing round.",
			Buckets:   prometheus.DefBuckets,
		}),
		AllocFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alloc_failures_total",
			Help:      "Allocation candidate failures, by FailMode.",
		}, []string{"fail_mode"}),
		AllocSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alloc_successes_total",
			Help:      "Allocation candidates that placed successfully.",
		}),
		EvacuationsMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evacuations_moved_total",
			Help:      "Instances successfully relocated by an evacuation or group-change run.",
		}),
		EvacuationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evacuations_failed_total",
			Help:      "Instances an evacuation or group-change run could not relocate.",
		}),
	}
}

// MustRegister registers every collector against reg, panicking on a
// duplicate-registration error (a programmer error: NewCollectors should
// only be registered once per registry).
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.ClusterScore,
		c.MetricComponents,
		c.BalancerRounds,
		c.BalancerGain,
		c.AllocFailures,
		c.AllocSuccesses,
		c.EvacuationsMoved,
		c.EvacuationsFailed,
	)
}

// ObserveClusterScore records the current total score and its 13 weighted
// components, using score.MetricNames for the label values.
func (c *Collectors) ObserveClusterScore(nl cluster.NodeList) {
	c.ClusterScore.Set(score.CompCV(nl))
	detail := score.CompDetailedCV(nl.Elems())
	for i, v := range detail {
		c.MetricComponents.WithLabelValues(score.MetricNames[i]).Set(v * score.Weights[i])
	}
}

// ObserveBalancerRound records one accepted balancing round's gain.
func (c *Collectors) ObserveBalancerRound(iniCV, finCV float64) {
	c.BalancerRounds.Inc()
	c.BalancerGain.Observe(iniCV - finCV)
}

// ObserveAllocSolution folds an allocation Solution's histogram and success
// count into the counters.
func (c *Collectors) ObserveAllocSolution(sol alloc.Solution) {
	for fm, n := range sol.Failures {
		c.AllocFailures.WithLabelValues(fm.String()).Add(float64(n))
	}
	c.AllocSuccesses.Add(float64(sol.Success))
}

// ObserveEvacuation records how many instances moved versus failed.
func (c *Collectors) ObserveEvacuation(moved, failed int) {
	c.EvacuationsMoved.Add(float64(moved))
	c.EvacuationsFailed.Add(float64(failed))
}

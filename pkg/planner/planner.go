// Package planner wraps the pure cluster-balancing core (pkg/cluster/...)
// with the ambient concerns a long-running service needs: context
// cancellation, OpenTelemetry tracing, klog logging, and Prometheus
// metrics. None of that lives in the core packages themselves — they stay
// pure functions over immutable snapshots, exercised directly by the CLI
// and by tests, and wrapped here only for the server/operator path.
package planner

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/klog/v2"

	"github.com/hsalcedo/clusterbal/pkg/cluster"
	"github.com/hsalcedo/clusterbal/pkg/cluster/balancer"
	"github.com/hsalcedo/clusterbal/pkg/cluster/planfmt"
	"github.com/hsalcedo/clusterbal/pkg/clustermetrics"
)

var tracer = otel.Tracer("github.com/hsalcedo/clusterbal/pkg/planner")

// Config bounds a single balancing run.
type Config struct {
	DiskMoves bool
	InstMoves bool
	EvacMode  bool
	MaxRounds int
	MinScore  float64
	MGLimit   float64
	MinGain   float64
}

// Planner runs the balancer to completion against a snapshot, recording a
// span per round and, when metrics is non-nil, observing each round's gain.
type Planner struct {
	metrics *clustermetrics.Collectors
}

// New builds a Planner. metrics may be nil to skip metrics collection.
func New(metrics *clustermetrics.Collectors) *Planner {
	return &Planner{metrics: metrics}
}

// Run balances nl/il to a fixed point (or until Config's round/score
// budget is exhausted), returning the final table and the chronological,
// human-readable plan lines.
func (p *Planner) Run(ctx context.Context, logger klog.Logger, nl cluster.NodeList, il cluster.InstanceList, cfg Config) (balancer.Table, []string, error) {
	ctx, span := tracer.Start(ctx, "planner.Run", trace.WithAttributes(
		attribute.Int("nodes", nl.Size()),
		attribute.Int("instances", il.Size()),
	))
	defer span.End()

	tbl := balancer.NewTable(nl, il)
	logger.Info("starting balance run", "initialScore", tbl.Score, "nodes", nl.Size(), "instances", il.Size())

	for balancer.DoNextBalance(tbl, cfg.MaxRounds, cfg.MinScore) {
		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, "context canceled")
			return tbl, nil, ctx.Err()
		default:
		}

		out, progressed := p.runRound(ctx, tbl, cfg)
		if !progressed {
			break
		}
		tbl = out
	}

	logger.Info("balance run complete", "finalScore", tbl.Score, "rounds", len(tbl.Placements))
	span.SetAttributes(attribute.Float64("final_score", tbl.Score), attribute.Int("rounds", len(tbl.Placements)))

	lines := planfmt.PrintSolutionLines(tbl.Nodes, tbl.Instances, planfmt.Chronological(tbl.Placements))
	return tbl, lines, nil
}

func (p *Planner) runRound(ctx context.Context, tbl balancer.Table, cfg Config) (balancer.Table, bool) {
	_, span := tracer.Start(ctx, "planner.round")
	defer span.End()

	iniCV := tbl.Score
	out, progressed := balancer.TryBalance(tbl, cfg.DiskMoves, cfg.InstMoves, cfg.EvacMode, cfg.MGLimit, cfg.MinGain)
	span.SetAttributes(attribute.Bool("progressed", progressed))
	if progressed {
		span.SetAttributes(attribute.Float64("score", out.Score))
		if p.metrics != nil {
			p.metrics.ObserveBalancerRound(iniCV, out.Score)
			p.metrics.ObserveClusterScore(out.Nodes)
		}
	}
	return out, progressed
}

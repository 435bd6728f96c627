package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"k8s.io/klog/v2"

	"github.com/hsalcedo/clusterbal/pkg/clustermetrics"
	"github.com/hsalcedo/clusterbal/pkg/planner"
)

func newServeCommand() *cobra.Command {
	var sf snapshotFlags
	var addr, otlpEndpoint string
	var cfg planner.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run one balance pass, exposing Prometheus metrics and an OTLP trace of the run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			shutdown, err := installTracing(ctx, otlpEndpoint)
			if err != nil {
				return err
			}
			defer shutdown(ctx)

			registry := prometheus.NewRegistry()
			collectors := clustermetrics.NewCollectors()
			collectors.MustRegister(registry)

			snap, err := sf.load()
			if err != nil {
				return err
			}

			p := planner.New(collectors)
			logger := klog.Background()
			_, lines, err := p.Run(ctx, logger, snap.nl, snap.il, cfg)
			if err != nil {
				return err
			}
			for _, line := range lines {
				logger.Info(line)
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			logger.Info("serving metrics", "addr", addr)
			return http.ListenAndServe(addr, mux)
		},
	}

	sf.register(cmd.Flags())
	cmd.Flags().StringVar(&addr, "listen", ":9090", "address to serve /metrics on")
	cmd.Flags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP/gRPC collector endpoint; empty disables tracing export")
	cmd.Flags().BoolVar(&cfg.DiskMoves, "disk-moves", true, "allow replace-disks style moves")
	cmd.Flags().BoolVar(&cfg.InstMoves, "inst-moves", true, "allow failover style moves")
	cmd.Flags().IntVar(&cfg.MaxRounds, "max-rounds", -1, "maximum balancing rounds, -1 for unbounded")
	cmd.Flags().Float64Var(&cfg.MGLimit, "mg-limit", 0.01, "minimum starting score below which min-gain governs acceptance")
	cmd.Flags().Float64Var(&cfg.MinGain, "min-gain", 0.01, "minimum absolute score improvement required to accept a round")

	return cmd
}

// installTracing wires an OTLP/gRPC span exporter when endpoint is set, or
// falls back to a no-op tracer provider otherwise. The returned shutdown
// func flushes and closes the exporter.
func installTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName("clusterbal")))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

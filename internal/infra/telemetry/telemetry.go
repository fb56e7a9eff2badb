package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/infra/config"
)

// Provider bundles the Prometheus metrics and the optional trace pipeline.
type Provider struct {
	requestCounter prometheus.Counter
	tracing        *tracePipeline
}

// Attach registers the service metrics and, when an OTLP endpoint is
// configured, starts the trace export pipeline.
func Attach(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	counter := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	})

	p := &Provider{requestCounter: counter}

	if cfg.Telemetry.OTLPEndpoint != "" {
		tracing, err := newTracePipeline(ctx, cfg.Telemetry, cfg.App.Env, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		p.tracing = tracing
	}

	return p, nil
}

// RequestCounter exposes the HTTP request metric.
func (p *Provider) RequestCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.requestCounter
}

// Shutdown flushes pending spans. Safe on a provider without tracing.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tracing == nil {
		return nil
	}
	return p.tracing.shutdown(ctx)
}

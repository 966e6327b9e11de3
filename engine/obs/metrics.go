// Package obs implements the engine's OpenTelemetry metrics surface: step
// dispatch counters, step duration histograms, and an approval-pending
// gauge, exported over Prometheus for scraping.
package obs

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var stepDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Metrics bundles the instruments the step loop and HTTP API report against.
// A zero-value Metrics (from NewDisabled) is safe to call on, recording
// nothing — the engine never branches on whether metrics are enabled.
type Metrics struct {
	registry *prom.Registry
	provider *sdkmetric.MeterProvider

	stepDuration    metric.Float64Histogram
	dispatchCounter metric.Int64Counter
	pendingApproval atomic.Int64
}

// New builds a Metrics backed by a dedicated Prometheus registry and an
// OTel SDK MeterProvider reading from it, mirroring the teacher's
// exporter-then-provider-then-meter construction order.
func New() (*Metrics, error) {
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("obs: failed to initialize prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("weaveflow")

	stepDuration, err := meter.Float64Histogram(
		"weaveflow_step_duration_seconds",
		metric.WithDescription("Duration of a single workflow step dispatch"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stepDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("obs: failed to create step duration histogram: %w", err)
	}
	dispatchCounter, err := meter.Int64Counter(
		"weaveflow_step_dispatch_total",
		metric.WithDescription("Total step dispatches, labeled by module/method/status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("obs: failed to create dispatch counter: %w", err)
	}

	m := &Metrics{
		registry:        registry,
		provider:        provider,
		stepDuration:    stepDuration,
		dispatchCounter: dispatchCounter,
	}
	if _, err := meter.Int64ObservableGauge(
		"weaveflow_approvals_pending",
		metric.WithDescription("Approval tickets currently awaiting submission or expiry"),
		metric.WithInt64Callback(func(_ context.Context, obs metric.Int64Observer) error {
			obs.Observe(m.pendingApproval.Load())
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("obs: failed to create pending-approval gauge: %w", err)
	}
	return m, nil
}

// NewDisabled returns a Metrics whose instruments are no-ops, for tests and
// for any process that opts out of metrics collection.
func NewDisabled() *Metrics {
	meter := noop.NewMeterProvider().Meter("weaveflow")
	duration, _ := meter.Float64Histogram("weaveflow_step_duration_seconds")
	counter, _ := meter.Int64Counter("weaveflow_step_dispatch_total")
	return &Metrics{stepDuration: duration, dispatchCounter: counter}
}

// RecordDispatch records one step dispatch's outcome and latency.
func (m *Metrics) RecordDispatch(ctx context.Context, module, method, status string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("module", module),
		attribute.String("method", method),
		attribute.String("status", status),
	)
	m.stepDuration.Record(ctx, seconds, attrs)
	m.dispatchCounter.Add(ctx, 1, attrs)
}

// ApprovalOpened increments the pending-approval gauge.
func (m *Metrics) ApprovalOpened() {
	if m == nil {
		return
	}
	m.pendingApproval.Add(1)
}

// ApprovalResolved decrements the pending-approval gauge.
func (m *Metrics) ApprovalResolved() {
	if m == nil {
		return
	}
	m.pendingApproval.Add(-1)
}

// Handler serves the Prometheus exposition format for a scraper. Returns a
// 503 handler when metrics were never initialized (NewDisabled).
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the underlying MeterProvider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

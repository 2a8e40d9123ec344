package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/campushub/campus-events-backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

type appMetrics struct {
	loginCounter      metric.Int64Counter
	sessionCounter    metric.Int64Counter
	authorizeCounter  metric.Int64Counter
	membershipCounter metric.Int64Counter
	repositoryCounter metric.Int64Counter
	rateLimitCounter  metric.Int64Counter
}

var (
	metricsMu sync.RWMutex
	metrics   *appMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("campus-events-backend")
	login, err := meter.Int64Counter("auth.login.attempts")
	if err != nil {
		return nil, err
	}
	session, err := meter.Int64Counter("auth.session.events")
	if err != nil {
		return nil, err
	}
	authorize, err := meter.Int64Counter("authz.decisions")
	if err != nil {
		return nil, err
	}
	membership, err := meter.Int64Counter("membership.events")
	if err != nil {
		return nil, err
	}
	repo, err := meter.Int64Counter("repository.operations")
	if err != nil {
		return nil, err
	}
	rateLimit, err := meter.Int64Counter("http.rate_limit.decisions")
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	metrics = &appMetrics{
		loginCounter:      login,
		sessionCounter:    session,
		authorizeCounter:  authorize,
		membershipCounter: membership,
		repositoryCounter: repo,
		rateLimitCounter:  rateLimit,
	}
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func current() *appMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metrics
}

func RecordLogin(role, status string) {
	m := current()
	if m == nil {
		return
	}
	m.loginCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("role", role),
			attribute.String("status", status),
		),
	)
}

// RecordSessionEvent tracks session lifecycle transitions: created,
// evicted, revoked, expired.
func RecordSessionEvent(event string) {
	m := current()
	if m == nil {
		return
	}
	m.sessionCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event", event)))
}

func RecordAuthorizeDecision(action, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.authorizeCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordMembershipEvent(event, status string) {
	m := current()
	if m == nil {
		return
	}
	m.membershipCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("event", event),
			attribute.String("status", status),
		),
	)
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.rateLimitCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, status string) {
	m := current()
	if m == nil {
		return
	}
	m.repositoryCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("entity", entity),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

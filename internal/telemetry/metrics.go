package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/musickatta/katta-admin"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Backend call metrics
	BackendRequestsTotal   metric.Int64Counter
	BackendErrorsTotal     metric.Int64Counter
	BackendRequestDuration metric.Float64Histogram

	// Session metrics
	LoginsTotal          metric.Int64Counter
	SessionsClearedTotal metric.Int64Counter
	GuardDenialsTotal    metric.Int64Counter

	// View metrics
	StaleResponsesTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments created before InitTelemetry delegate to the provider installed later.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.BackendRequestsTotal, _ = meter.Int64Counter(
		"katta.backend.requests.total",
		metric.WithDescription("Total number of calls made to the backend services"),
		metric.WithUnit("{request}"),
	)

	m.BackendErrorsTotal, _ = meter.Int64Counter(
		"katta.backend.errors.total",
		metric.WithDescription("Total number of backend calls that failed in transport or returned a non-2xx status"),
		metric.WithUnit("{error}"),
	)

	m.BackendRequestDuration, _ = meter.Float64Histogram(
		"katta.backend.request.duration",
		metric.WithDescription("Duration of backend calls"),
		metric.WithUnit("ms"),
	)

	m.LoginsTotal, _ = meter.Int64Counter(
		"katta.sessions.logins.total",
		metric.WithDescription("Total number of sessions created, by login method"),
		metric.WithUnit("{session}"),
	)

	m.SessionsClearedTotal, _ = meter.Int64Counter(
		"katta.sessions.cleared.total",
		metric.WithDescription("Total number of stored sessions deleted, by reason"),
		metric.WithUnit("{session}"),
	)

	m.GuardDenialsTotal, _ = meter.Int64Counter(
		"katta.guard.denials.total",
		metric.WithDescription("Total number of page or command entries refused by the route guard"),
		metric.WithUnit("{request}"),
	)

	m.StaleResponsesTotal, _ = meter.Int64Counter(
		"katta.requests.stale.total",
		metric.WithDescription("Total number of responses discarded because a newer request superseded them"),
		metric.WithUnit("{response}"),
	)

	return m
}

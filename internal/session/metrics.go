package session

import (
	"context"

	"github.com/musickatta/katta-admin/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func recordCleared(ctx context.Context, reason string) {
	telemetry.GetMetrics().SessionsClearedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordLogin counts a newly saved session by login method.
func RecordLogin(ctx context.Context, s Session) {
	telemetry.GetMetrics().LoginsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", string(s.Kind()))))
}

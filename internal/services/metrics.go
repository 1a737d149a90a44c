package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "research-reports/backend/internal/services"

var (
	submissionCounter metric.Int64Counter
	questionCounter   metric.Int64Counter
)

func init() {
	meter := otel.Meter(meterName)
	// errors only on invalid instrument names
	submissionCounter, _ = meter.Int64Counter("research.submissions",
		metric.WithDescription("Research jobs handed to the workflow"))
	questionCounter, _ = meter.Int64Counter("research.question_generations",
		metric.WithDescription("Follow-up question generation calls by outcome"))
}

func submissionCount(ctx context.Context, kind, outcome string) {
	if submissionCounter == nil {
		return
	}
	submissionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func questionCount(ctx context.Context, outcome string) {
	if questionCounter == nil {
		return
	}
	questionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/verte-zerg/speedtype/internal/model"
)

// Recorder records session and store metrics.
type Recorder struct {
	completed metric.Int64Counter
	wpm       metric.Float64Histogram
	accuracy  metric.Float64Histogram
	storeErrs metric.Int64Counter
}

// NewRecorder creates the instruments on meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	completed, err := meter.Int64Counter("speedtype.sessions.completed",
		metric.WithDescription("Completed typing sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions counter: %w", err)
	}
	wpm, err := meter.Float64Histogram("speedtype.session.wpm",
		metric.WithDescription("Words per minute of completed sessions"),
		metric.WithUnit("{word}/min"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create wpm histogram: %w", err)
	}
	accuracy, err := meter.Float64Histogram("speedtype.session.accuracy",
		metric.WithDescription("Accuracy of completed sessions"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create accuracy histogram: %w", err)
	}
	storeErrs, err := meter.Int64Counter("speedtype.store.errors",
		metric.WithDescription("Failed store operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store error counter: %w", err)
	}
	return &Recorder{
		completed: completed,
		wpm:       wpm,
		accuracy:  accuracy,
		storeErrs: storeErrs,
	}, nil
}

// NopRecorder returns a recorder whose instruments do nothing.
func NopRecorder() *Recorder {
	r, err := NewRecorder(noop.NewMeterProvider().Meter(ScopeName))
	if err != nil {
		// The noop meter never fails.
		panic(err)
	}
	return r
}

// SessionCompleted records one finished session.
func (r *Recorder) SessionCompleted(ctx context.Context, result model.SessionResult) {
	attrs := metric.WithAttributes(attribute.String("difficulty", result.Difficulty))
	r.completed.Add(ctx, 1, attrs)
	r.wpm.Record(ctx, result.WPM, attrs)
	r.accuracy.Record(ctx, result.Accuracy, attrs)
}

// StoreError records a failed store operation.
func (r *Recorder) StoreError(ctx context.Context, op string) {
	r.storeErrs.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

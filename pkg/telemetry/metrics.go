// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	operrors "github.com/jllopis/exampleop/pkg/errors"
)

const meterName = "exampleop/operator"

// OperatorMetrics counts operator runs and records their duration.
type OperatorMetrics struct {
	runs     metric.Int64Counter
	duration metric.Float64Histogram
}

// NewOperatorMetrics creates the instruments on provider, or on the global
// meter provider when provider is nil.
func NewOperatorMetrics(provider metric.MeterProvider) (*OperatorMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	runs, err := meter.Int64Counter(
		"exampleop.operator.runs",
		metric.WithDescription("Operator runs by type, status and error code"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"exampleop.operator.duration",
		metric.WithDescription("Operator run duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &OperatorMetrics{runs: runs, duration: duration}, nil
}

// RecordRun records the outcome of one run. err is nil on success.
func (m *OperatorMetrics) RecordRun(ctx context.Context, opType string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrOperatorType, opType),
		attribute.String(AttrRunStatus, StatusOf(err)),
	}
	if err != nil {
		oe := operrors.AsOperatorError(err)
		attrs = append(attrs,
			attribute.String(AttrErrorCode, string(oe.Code)),
			attribute.String(AttrErrorRecoverable, oe.RecoverableString()),
		)
	}

	set := metric.WithAttributes(attrs...)
	m.runs.Add(ctx, 1, set)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, set)
}

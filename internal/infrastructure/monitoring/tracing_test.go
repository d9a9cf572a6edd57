package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/infrastructure/config"
)

func TestNewTracingProvider_Disabled(t *testing.T) {
	tp, err := NewTracingProvider(TracingConfig{ServiceName: "nutriplan", Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	ctx, span := tp.StartSpan(context.Background(), "noop")
	RecordError(ctx, errors.New("ignored"))
	span.End()

	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracingProvider_EnabledWithZeroSampling(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	tp, err := NewTracingProvider(TracingConfig{
		ServiceName:  "nutriplan-engine",
		OTLPEndpoint: "127.0.0.1:4318",
		Insecure:     true,
		SamplingRate: 0,
		Enabled:      true,
	}, zap.NewNop())
	require.NoError(t, err)

	_, span := tp.StartSpan(context.Background(), "meal-plan.set-slot")
	assert.True(t, span.SpanContext().IsValid())
	assert.False(t, span.SpanContext().IsSampled())
	span.End()

	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracingConfig(t *testing.T) {
	cfg := NewTracingConfig(
		config.MonitoringConfig{ServiceName: "nutriplan-engine", EnableTracing: true, SamplingRate: 0.5, OTLPEndpoint: "collector:4318"},
		config.AppConfig{Version: "2.1.0", Environment: "staging"},
	)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "2.1.0", cfg.ServiceVersion)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "collector:4318", cfg.OTLPEndpoint)
	assert.Equal(t, 0.5, cfg.SamplingRate)
}

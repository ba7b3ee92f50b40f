package analyzer

import (
	"context"
	"errors"
	"testing"

	"dieter"
	"dieter/analyzer/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func counterTotal(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func hasMetric(rm metricdata.ResourceMetrics, name string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

func TestInstrumentedAnalyzer(t *testing.T) {
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	llm := mock.NewLLMClient(
		mock.Response{Text: mock.DefaultText},
		mock.Response{Err: errors.New("throttled")},
		mock.Response{Text: "no json here"},
	)
	ia, err := NewInstrumentedAnalyzer(llm, newTestBuilder(t), nil,
		tp.Tracer(dieter.TracerNameAnalyzer), mp.Meter(dieter.MeterNameAnalyzer))
	require.NoError(t, err)

	first := ia.Analyze(ctx, dieter.AnalysisRequest{Description: "stew"})
	assert.Equal(t, "Kimchi stew", first.FoodName)
	assert.True(t, ia.Analyze(ctx, dieter.AnalysisRequest{Description: "stew"}).IsFallback())
	assert.True(t, ia.Analyze(ctx, dieter.AnalysisRequest{Image: []byte{1, 2}}).IsFallback())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(3), counterTotal(t, rm, "analyses_total"))
	assert.Equal(t, int64(2), counterTotal(t, rm, "analysis_fallbacks_total"))
	assert.Equal(t, int64(1), counterTotal(t, rm, "analysis_upstream_errors_total"))
	assert.True(t, hasMetric(rm, "analysis_duration_seconds"))
	assert.True(t, hasMetric(rm, "llm_response_time_seconds"))

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "InstrumentedAnalyzer.Analyze", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "model call failed", spans[1].Status().Description)
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Equal(t, "model output unreadable", spans[2].Status().Description)
}

func TestInstrumentedAnalyzer_AnalyzeBatch(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))

	ia, err := NewInstrumentedAnalyzer(mock.NewLLMClient(), newTestBuilder(t), nil,
		tp.Tracer(dieter.TracerNameAnalyzer), mp.Meter(dieter.MeterNameAnalyzer))
	require.NoError(t, err)

	got, err := ia.AnalyzeBatch(context.Background(), []dieter.AnalysisRequest{{Description: "a"}, {Description: "b"}}, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	names := map[string]int{}
	for _, s := range recorder.Ended() {
		names[s.Name()]++
	}
	assert.Equal(t, 2, names["InstrumentedAnalyzer.Analyze"])
	assert.Equal(t, 1, names["InstrumentedAnalyzer.AnalyzeBatch"])
}

package analyzer

import (
	"context"
	"errors"
	"time"

	"dieter"
	"dieter/nutrition"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedAnalyzer is an Analyzer that reports spans and metrics for every attempt.
type InstrumentedAnalyzer struct {
	inner  *Analyzer
	tracer trace.Tracer

	analyses       metric.Int64Counter
	fallbacks      metric.Int64Counter
	upstreamErrors metric.Int64Counter
	duration       metric.Float64Histogram
	llmResponse    metric.Float64Histogram
}

// NewInstrumentedAnalyzer wraps a new Analyzer with the given tracer and meter.
func NewInstrumentedAnalyzer(llm llmClient, builder *nutrition.Builder, logger dieter.AnalysisLogger, tracer trace.Tracer, meter metric.Meter) (*InstrumentedAnalyzer, error) {
	ia := &InstrumentedAnalyzer{
		inner:  NewAnalyzer(llm, builder, logger),
		tracer: tracer,
	}

	var errs [5]error
	ia.analyses, errs[0] = meter.Int64Counter("analyses_total",
		metric.WithDescription("Total number of analysis attempts"))
	ia.fallbacks, errs[1] = meter.Int64Counter("analysis_fallbacks_total",
		metric.WithDescription("Total number of attempts that produced the fallback record"))
	ia.upstreamErrors, errs[2] = meter.Int64Counter("analysis_upstream_errors_total",
		metric.WithDescription("Total number of attempts where the model call failed"))
	ia.duration, errs[3] = meter.Float64Histogram("analysis_duration_seconds",
		metric.WithDescription("Duration of a whole analysis attempt in seconds"), metric.WithUnit("s"))
	ia.llmResponse, errs[4] = meter.Float64Histogram("llm_response_time_seconds",
		metric.WithDescription("Time taken to receive response from LLM in seconds"), metric.WithUnit("s"))
	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}

	return ia, nil
}

// Analyze behaves like Analyzer.Analyze.
func (ia *InstrumentedAnalyzer) Analyze(ctx context.Context, req dieter.AnalysisRequest) dieter.NutritionRecord {
	ctx, span := ia.tracer.Start(ctx, "InstrumentedAnalyzer.Analyze", trace.WithAttributes(
		attribute.String("analysis.source", req.Source()),
		attribute.Int("analysis.image_bytes", len(req.Image)),
	))
	defer span.End()

	start := time.Now()
	o := ia.inner.run(ctx, req)
	elapsed := time.Since(start)

	attrs := metric.WithAttributes(attribute.String("source", req.Source()))
	ia.analyses.Add(ctx, 1, attrs)
	ia.duration.Record(ctx, elapsed.Seconds(), attrs)
	ia.llmResponse.Record(ctx, o.llmDuration.Seconds(), attrs)

	fallback := o.record.IsFallback()
	if fallback {
		ia.fallbacks.Add(ctx, 1, attrs)
	}

	switch {
	case o.upstreamErr != nil:
		ia.upstreamErrors.Add(ctx, 1, attrs)
		span.RecordError(o.upstreamErr)
		span.SetStatus(codes.Error, "model call failed")
	case o.trace.Err != nil:
		span.RecordError(o.trace.Err)
		span.SetStatus(codes.Error, "model output unreadable")
	default:
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(
		attribute.String("nutrition.food_name", o.record.FoodName),
		attribute.Float64("nutrition.calories", o.record.Calories),
		attribute.Bool("nutrition.fallback", fallback),
	)
	return o.record
}

// AnalyzeBatch behaves like Analyzer.AnalyzeBatch, with one span per request.
func (ia *InstrumentedAnalyzer) AnalyzeBatch(ctx context.Context, reqs []dieter.AnalysisRequest, limit int) ([]dieter.NutritionRecord, error) {
	ctx, span := ia.tracer.Start(ctx, "InstrumentedAnalyzer.AnalyzeBatch", trace.WithAttributes(
		attribute.Int("analysis.batch_size", len(reqs)),
		attribute.Int("analysis.limit", limit),
	))
	defer span.End()

	out, err := analyzeBatch(ctx, reqs, limit, ia.Analyze)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch interrupted")
	}
	return out, err
}

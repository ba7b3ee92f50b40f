package analyzer

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"dieter"
	"dieter/nutrition"

	"golang.org/x/sync/errgroup"
)

type llmClient interface {
	Generate(ctx context.Context, req dieter.AnalysisRequest) (string, error)
}

// Analyzer turns one analysis request into a NutritionRecord. Every completed
// attempt yields a record: upstream failures degrade to the fallback record.
type Analyzer struct {
	llm      llmClient
	builder  *nutrition.Builder
	logger   dieter.AnalysisLogger
	attempts atomic.Int64
}

func NewAnalyzer(llm llmClient, builder *nutrition.Builder, logger dieter.AnalysisLogger) *Analyzer {
	if builder == nil {
		builder = nutrition.NewBuilder(nil)
	}
	if logger == nil {
		logger = dieter.NewNoOpAnalysisLogger()
	}
	return &Analyzer{llm: llm, builder: builder, logger: logger}
}

type outcome struct {
	record      dieter.NutritionRecord
	trace       nutrition.Trace
	upstreamErr error
	llmDuration time.Duration
}

// Analyze asks the model about req and normalizes its answer.
func (a *Analyzer) Analyze(ctx context.Context, req dieter.AnalysisRequest) dieter.NutritionRecord {
	return a.run(ctx, req).record
}

// AnalyzeBatch analyzes reqs concurrently, at most limit at a time (no limit
// when limit <= 0). Results line up with reqs. Requests not started before
// ctx is done keep the fallback record and ctx's error is returned.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, reqs []dieter.AnalysisRequest, limit int) ([]dieter.NutritionRecord, error) {
	return analyzeBatch(ctx, reqs, limit, a.Analyze)
}

func (a *Analyzer) run(ctx context.Context, req dieter.AnalysisRequest) outcome {
	n := int(a.attempts.Add(1))
	attempt := dieter.AttemptLog{Attempt: n, Timestamp: time.Now(), Input: describe(req)}

	slog.Info("ANALYZER: Sending request to LLM", "attempt", n, "source", req.Source(), "image_bytes", len(req.Image))

	start := time.Now()
	raw, err := a.llm.Generate(ctx, req)
	o := outcome{llmDuration: time.Since(start)}

	if err != nil {
		slog.Warn("ANALYZER: Upstream analysis failed; returning fallback record", "attempt", n, "error", err)
		o.record = dieter.FallbackRecord()
		o.upstreamErr = err
		attempt.Error = err.Error()
	} else {
		o.record, o.trace = a.builder.Trace(raw)
		attempt.RawOutput = raw
		attempt.Payload = o.trace.Payload
		attempt.Sanitized = o.trace.Sanitized
		if o.trace.Err != nil {
			attempt.Error = o.trace.Err.Error()
			slog.Warn("ANALYZER: Model output could not be parsed; returning fallback record", "attempt", n, "error", o.trace.Err, "output_len", len(raw))
		}
	}

	attempt.Record = o.record
	attempt.Fallback = o.record.IsFallback()
	if err := a.logger.LogAttempt(attempt); err != nil {
		slog.Error("ANALYZER: Failed to log attempt", "attempt", n, "error", err)
	}

	slog.Info("ANALYZER: Analysis complete",
		"attempt", n,
		"food_name", o.record.FoodName,
		"calories", o.record.Calories,
		"fallback", attempt.Fallback,
		"llm_ms", o.llmDuration.Milliseconds(),
	)
	return o
}

func analyzeBatch(ctx context.Context, reqs []dieter.AnalysisRequest, limit int, analyze func(context.Context, dieter.AnalysisRequest) dieter.NutritionRecord) ([]dieter.NutritionRecord, error) {
	out := make([]dieter.NutritionRecord, len(reqs))
	for i := range out {
		out[i] = dieter.FallbackRecord()
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = analyze(gctx, req)
			return nil
		})
	}
	return out, g.Wait()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dieter"
	"dieter/analyzer"
	"dieter/analyzer/bedrock"
	"dieter/analyzer/mock"
	"dieter/analyzer/ollama"
	"dieter/intake"
	"dieter/nutrition"
	"dieter/storage"
	"dieter/tools"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel"
)

type generator interface {
	Generate(ctx context.Context, req dieter.AnalysisRequest) (string, error)
}

func loadPipelineConfig() (dieter.PipelineConfig, error) {
	var cfg dieter.PipelineConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode pipeline config: %w", err)
	}
	if recordsPath != "" {
		cfg.RecordsPath = recordsPath
	}
	return cfg, nil
}

func openRecordLog(cfg dieter.PipelineConfig) storage.RecordLog {
	return storage.NewJSONRecordLog(storage.NewFileBlob(cfg.RecordsPath))
}

func reportTool() (tools.Tool, error) {
	registry, err := tools.NewRegistry(tools.NewReportNutrition())
	if err != nil {
		return nil, err
	}
	return registry.GetTool(tools.ReportNutritionName)
}

// newGenerator builds the model client for the selected provider and returns
// the model id used to name attempt logs.
func newGenerator(ctx context.Context, cfg dieter.PipelineConfig) (generator, string, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "mock" {
		return mock.NewLLMClient(), "mock", nil
	}

	var modelConfig dieter.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		return nil, "", fmt.Errorf("decode model config: %w", err)
	}

	tool, err := reportTool()
	if err != nil {
		return nil, "", err
	}

	switch name {
	case "ollama":
		c, err := ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: cfg.BaseOllamaEndpoint,
			ModelID:      modelConfig.ModelID,
			ReportTool:   tool,
		})
		if err != nil {
			return nil, "", err
		}
		return c, modelConfig.ModelID, nil
	case "bedrock":
		brc, err := newBedrockRuntimeClient(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("create bedrock client: %w", err)
		}
		return bedrock.NewLLMClient(brc, bedrock.LLMOptions{
			ModelID:     modelConfig.ModelID,
			MaxTokens:   modelConfig.MaxTokens,
			Temperature: modelConfig.Temperature,
			TopP:        modelConfig.TopP,
			ReportTool:  tool,
		}), modelConfig.ModelID, nil
	default:
		return nil, "", fmt.Errorf("unknown provider %q (expected bedrock, ollama or mock)", provider)
	}
}

func newBedrockRuntimeClient(ctx context.Context) (*bedrockruntime.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

// newAnalyzer wires the model client, builder and telemetry. The returned
// cleanup flushes telemetry and must always be called.
func newAnalyzer(ctx context.Context, cfg dieter.PipelineConfig, llm generator, logger dieter.AnalysisLogger) (*analyzer.InstrumentedAnalyzer, func(), error) {
	sanitizer, err := nutrition.NewSanitizer(cfg.Scripts()...)
	if err != nil {
		return nil, func() {}, err
	}
	builder := nutrition.NewBuilder(sanitizer)

	cleanup := func() {}
	if withOtel {
		_, _, otelShutdown, err := dieter.InitOtel(ctx)
		if err != nil {
			return nil, cleanup, fmt.Errorf("initialize OpenTelemetry: %w", err)
		}
		cleanup = func() {
			if err := otelShutdown(context.Background()); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}
	}

	ia, err := analyzer.NewInstrumentedAnalyzer(
		llm,
		builder,
		logger,
		otel.Tracer(dieter.TracerNameAnalyzer),
		otel.Meter(dieter.MeterNameAnalyzer),
	)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return ia, cleanup, nil
}

func newAnalysisLogger(modelID string) (dieter.AnalysisLogger, func() error, error) {
	logFilePath := dieter.NewAnalysisLogFilePath(modelID)
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := dieter.NewFileAnalysisLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", s)
	}
	return day, nil
}

func entriesFor(entries []dieter.LogEntry, subject string) []dieter.LogEntry {
	if subject == "" {
		return entries
	}
	var out []dieter.LogEntry
	for _, e := range entries {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out
}

// dailyTotals loads the record log and folds the subject's records for day.
func dailyTotals(ctx context.Context, cfg dieter.PipelineConfig, gender, subject string, day time.Time) (intake.DailyTotals, []dieter.LogEntry, error) {
	g, err := intake.ParseGender(gender)
	if err != nil {
		return intake.DailyTotals{}, nil, err
	}

	var rdaConfig dieter.RDAConfig
	if err := envdecode.Decode(&rdaConfig); err != nil {
		return intake.DailyTotals{}, nil, fmt.Errorf("decode rda config: %w", err)
	}

	entries, err := openRecordLog(cfg).Load(ctx)
	if err != nil {
		return intake.DailyTotals{}, nil, err
	}

	records := intake.RecordsOn(entries, subject, day)
	totals, err := intake.NewAggregator(intake.RDATableFromConfig(rdaConfig)).Aggregate(records, g)
	if err != nil {
		return intake.DailyTotals{}, nil, err
	}
	return totals, entries, nil
}

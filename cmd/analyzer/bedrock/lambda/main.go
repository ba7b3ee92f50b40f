package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"dieter"
	"dieter/analyzer"
	"dieter/analyzer/bedrock"
	"dieter/nutrition"
	"dieter/storage"
	"dieter/tools"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"
)

type Params struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

type Results struct {
	Record   dieter.NutritionRecord `json:"record"`
	EntryID  string                 `json:"entry_id,omitempty"`
	Fallback bool                   `json:"fallback"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
		var modelConfig dieter.ModelConfig
		if err := envdecode.Decode(&modelConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		var pipelineConfig dieter.PipelineConfig
		if err := envdecode.Decode(&pipelineConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		req, err := analysisRequest(params)
		if err != nil {
			return Results{}, err
		}

		// S3 config from env
		s3Bucket := os.Getenv("ARTIFACTS_S3_BUCKET")
		recordsKey := os.Getenv("RECORDS_S3_KEY")
		if s3Bucket == "" || recordsKey == "" {
			return Results{}, fmt.Errorf("missing S3 config: ARTIFACTS_S3_BUCKET, RECORDS_S3_KEY must be set")
		}

		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return Results{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		records := storage.NewJSONRecordLog(storage.NewS3Blob(s3.NewFromConfig(awsCfg), s3Bucket, recordsKey))
		slog.Info("SETUP: S3 record log initialized", "bucket", s3Bucket, "key", recordsKey)

		registry, err := tools.NewRegistry(tools.NewReportNutrition())
		if err != nil {
			slog.Error("SETUP: Failed to create tool registry", "error", err)
			return Results{}, err
		}
		reportTool, err := registry.GetTool(tools.ReportNutritionName)
		if err != nil {
			return Results{}, err
		}

		sanitizer, err := nutrition.NewSanitizer(pipelineConfig.Scripts()...)
		if err != nil {
			slog.Error("SETUP: Invalid sanitizer scripts", "error", err)
			return Results{}, err
		}

		llm := bedrock.NewLLMClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMOptions{
			ModelID:     modelConfig.ModelID,
			MaxTokens:   modelConfig.MaxTokens,
			Temperature: modelConfig.Temperature,
			TopP:        modelConfig.TopP,
			ReportTool:  reportTool,
		})

		tracerProvider, meterProvider, otelShutdown, err := dieter.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return Results{}, err
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		a, err := analyzer.NewInstrumentedAnalyzer(
			llm,
			nutrition.NewBuilder(sanitizer),
			dieter.NewStdoutAnalysisLogger(),
			tracerProvider.Tracer(dieter.TracerNameAnalyzer),
			meterProvider.Meter(dieter.MeterNameAnalyzer),
		)
		if err != nil {
			slog.Error("SETUP: Failed to create analyzer", "error", err)
			return Results{}, err
		}

		record := a.Analyze(ctx, req)
		if record.IsFallback() {
			slog.Warn("RESULT: Analysis could not be read; not storing")
			return Results{Record: record, Fallback: true}, nil
		}

		entry := dieter.NewLogEntry(params.Subject, req.Source(), record, time.Now())
		if err := records.Append(ctx, entry); err != nil {
			slog.Error("RESULT: Failed to store record", "error", err)
			return Results{}, err
		}

		return Results{Record: record, EntryID: entry.ID}, nil
	}

	lambda.Start(fn)
}

func analysisRequest(params Params) (dieter.AnalysisRequest, error) {
	req := dieter.AnalysisRequest{
		Description: strings.TrimSpace(params.Description),
		MimeType:    params.MimeType,
	}
	if params.ImageBase64 != "" {
		img, err := base64.StdEncoding.DecodeString(params.ImageBase64)
		if err != nil {
			return req, fmt.Errorf("decode image: %w", err)
		}
		req.Image = img
	}
	if req.Description == "" && len(req.Image) == 0 {
		return req, fmt.Errorf("missing description or image_base64")
	}
	return req, nil
}

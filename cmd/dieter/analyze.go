package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"dieter"

	"github.com/spf13/cobra"
)

var (
	analyzeImages      []string
	analyzeNote        string
	analyzeSubject     string
	analyzeLogAttempts bool
	analyzeDryRun      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [description...]",
	Short: "Analyze meal descriptions or photos into nutrition records",
	Long: "Each description argument and each --image is analyzed separately. " +
		"Records that could be read are appended to the records file; fallback records are only printed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		reqs, err := analysisRequests(args, analyzeImages, analyzeNote)
		if err != nil {
			return err
		}

		cfg, err := loadPipelineConfig()
		if err != nil {
			return err
		}

		llm, modelID, err := newGenerator(ctx, cfg)
		if err != nil {
			return err
		}

		var logger dieter.AnalysisLogger = dieter.NewNoOpAnalysisLogger()
		if analyzeLogAttempts {
			fileLogger, flush, err := newAnalysisLogger(modelID)
			if err != nil {
				return err
			}
			defer func() {
				if err := flush(); err != nil {
					slog.Error("Failed to flush analysis log", "error", err)
				}
			}()
			logger = fileLogger
		}

		a, cleanup, err := newAnalyzer(ctx, cfg, llm, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		records, err := a.AnalyzeBatch(ctx, reqs, cfg.BatchConcurrency)
		if err != nil {
			return err
		}
		if debug {
			dieter.Dump(records)
		}

		now := time.Now()
		var entries []dieter.LogEntry
		out := cmd.OutOrStdout()
		for i, rec := range records {
			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))

			if rec.IsFallback() {
				slog.Warn("RESULT: Analysis could not be read; not storing", "request", i+1)
				continue
			}
			entries = append(entries, dieter.NewLogEntry(analyzeSubject, reqs[i].Source(), rec, now))
		}

		if analyzeDryRun || len(entries) == 0 {
			return nil
		}
		if err := openRecordLog(cfg).Append(ctx, entries...); err != nil {
			return err
		}
		fmt.Fprintf(out, "Stored %d of %d records in %s\n", len(entries), len(records), cfg.RecordsPath)
		return nil
	},
}

func analysisRequests(descriptions, images []string, note string) ([]dieter.AnalysisRequest, error) {
	var reqs []dieter.AnalysisRequest
	for _, d := range descriptions {
		if d = strings.TrimSpace(d); d != "" {
			reqs = append(reqs, dieter.AnalysisRequest{Description: d})
		}
	}
	for _, path := range images {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		mimeType, _, _ := strings.Cut(http.DetectContentType(data), ";")
		reqs = append(reqs, dieter.AnalysisRequest{
			Description: strings.TrimSpace(note),
			Image:       data,
			MimeType:    mimeType,
		})
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("nothing to analyze: pass a description or --image")
	}
	return reqs, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringSliceVar(&analyzeImages, "image", nil, "Path to a meal photo (repeatable)")
	analyzeCmd.Flags().StringVar(&analyzeNote, "note", "", "Extra notes sent along with each photo")
	analyzeCmd.Flags().StringVar(&analyzeSubject, "subject", "", "Who ate the meal")
	analyzeCmd.Flags().BoolVar(&analyzeLogAttempts, "log-attempts", false, "Write every attempt to ./logs")
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "Print records without storing them")
}

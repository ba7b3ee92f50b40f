package dieter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// AnalysisLogger is the interface for recording analysis attempts.
type AnalysisLogger interface {
	LogAttempt(attempt AttemptLog) error
}

// NewAnalysisLogFilePath returns a file path based on a cleaned up model name or id to make it easier to identify logs produced with various models.
func NewAnalysisLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(model), ":", "_"),
	)
}

// AttemptLog represents a single analysis attempt, from raw model text to the record handed back.
type AttemptLog struct {
	Attempt   int             `json:"attempt"`
	Timestamp time.Time       `json:"timestamp"`
	Input     string          `json:"input,omitempty"`
	RawOutput string          `json:"raw_output"`
	Payload   string          `json:"payload,omitempty"`
	Sanitized string          `json:"sanitized,omitempty"`
	Record    NutritionRecord `json:"record"`
	Fallback  bool            `json:"fallback"`
	Error     string          `json:"error,omitempty"`
}

// FileAnalysisLogger logs to a file, accumulating attempts and flushing at the end.
// It is safe for concurrent use.
type FileAnalysisLogger struct {
	mu       sync.Mutex
	attempts []AttemptLog
	writer   io.Writer
}

// NewFileAnalysisLogger creates a new file-based analysis logger
func NewFileAnalysisLogger(writer io.Writer) *FileAnalysisLogger {
	return &FileAnalysisLogger{
		attempts: make([]AttemptLog, 0),
		writer:   writer,
	}
}

// LogAttempt adds an attempt to the buffer (does not flush immediately)
func (l *FileAnalysisLogger) LogAttempt(attempt AttemptLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, attempt)
	return nil
}

// Flush writes all accumulated attempts to the writer
func (l *FileAnalysisLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"analysis_session": map[string]any{
			"timestamp": time.Now(),
			"attempts":  l.attempts,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analysis log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write analysis log: %w", err)
	}

	l.attempts = l.attempts[:0]
	return nil
}

// NoOpAnalysisLogger discards all log entries
type NoOpAnalysisLogger struct{}

func NewNoOpAnalysisLogger() *NoOpAnalysisLogger {
	return &NoOpAnalysisLogger{}
}

func (nop *NoOpAnalysisLogger) LogAttempt(attempt AttemptLog) error {
	return nil
}

// StdoutAnalysisLogger logs each attempt as a JSON line (for Lambda/CloudWatch)
type StdoutAnalysisLogger struct {
	out io.Writer
}

// NewStdoutAnalysisLogger creates a new logger writing to os.Stdout
func NewStdoutAnalysisLogger() *StdoutAnalysisLogger {
	return &StdoutAnalysisLogger{out: os.Stdout}
}

// LogAttempt writes the attempt as a single JSON line
func (l *StdoutAnalysisLogger) LogAttempt(attempt AttemptLog) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(l.out, string(data))
	return err
}

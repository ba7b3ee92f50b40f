package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"dieter"
	"dieter/analyzer/mock"
	"dieter/nutrition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) *nutrition.Builder {
	t.Helper()
	s, err := nutrition.NewSanitizer("Latin", "Hangul")
	require.NoError(t, err)
	return nutrition.NewBuilder(s)
}

// recordingLogger keeps attempts in memory
type recordingLogger struct {
	mu       sync.Mutex
	attempts []dieter.AttemptLog
	err      error
}

func (l *recordingLogger) LogAttempt(a dieter.AttemptLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, a)
	return l.err
}

func TestAnalyzer_Analyze(t *testing.T) {
	tests := []struct {
		name           string
		response       mock.Response
		expected       dieter.NutritionRecord
		expectFallback bool
		expectLogError string
	}{
		{
			name:     "fenced model answer",
			response: mock.Response{Text: mock.DefaultText},
			expected: dieter.NutritionRecord{
				FoodName: "Kimchi stew",
				Calories: 450,
				Nutrients: dieter.Nutrients{
					Protein: 20, Fat: 15, Carbohydrates: 30, Sugar: 5, Sodium: 900,
				},
			},
		},
		{
			name:           "upstream failure degrades to fallback",
			response:       mock.Response{Err: errors.New("503 service unavailable")},
			expected:       dieter.FallbackRecord(),
			expectFallback: true,
			expectLogError: "503 service unavailable",
		},
		{
			name:           "unreadable answer degrades to fallback",
			response:       mock.Response{Text: "I cannot analyze this image"},
			expected:       dieter.FallbackRecord(),
			expectFallback: true,
			expectLogError: "parse payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			a := NewAnalyzer(mock.NewLLMClient(tt.response), newTestBuilder(t), logger)

			got := a.Analyze(context.Background(), dieter.AnalysisRequest{Description: "stew"})
			assert.Equal(t, tt.expected, got)

			require.Len(t, logger.attempts, 1)
			attempt := logger.attempts[0]
			assert.Equal(t, 1, attempt.Attempt)
			assert.Equal(t, "stew", attempt.Input)
			assert.Equal(t, tt.expected, attempt.Record)
			assert.Equal(t, tt.expectFallback, attempt.Fallback)
			if tt.expectLogError != "" {
				assert.Contains(t, attempt.Error, tt.expectLogError)
			} else {
				assert.Empty(t, attempt.Error)
				assert.NotEmpty(t, attempt.Payload)
				assert.NotEmpty(t, attempt.Sanitized)
			}
		})
	}
}

func TestAnalyzer_AttemptNumbersAndImageInput(t *testing.T) {
	logger := &recordingLogger{}
	a := NewAnalyzer(mock.NewLLMClient(), newTestBuilder(t), logger)

	a.Analyze(context.Background(), dieter.AnalysisRequest{Description: "one"})
	a.Analyze(context.Background(), dieter.AnalysisRequest{Image: bytes.Repeat([]byte{1}, 10), MimeType: "image/png"})

	require.Len(t, logger.attempts, 2)
	assert.Equal(t, 2, logger.attempts[1].Attempt)
	assert.Equal(t, "image image/png (10 bytes)", logger.attempts[1].Input)
}

func TestAnalyzer_LoggerFailureDoesNotChangeResult(t *testing.T) {
	logger := &recordingLogger{err: errors.New("disk full")}
	a := NewAnalyzer(mock.NewLLMClient(), newTestBuilder(t), logger)

	got := a.Analyze(context.Background(), dieter.AnalysisRequest{Description: "stew"})
	assert.Equal(t, "Kimchi stew", got.FoodName)
}

func TestAnalyzer_Defaults(t *testing.T) {
	a := NewAnalyzer(mock.NewLLMClient(mock.Response{Text: "nothing"}), nil, nil)
	assert.True(t, a.Analyze(context.Background(), dieter.AnalysisRequest{}).IsFallback())

	a = NewAnalyzer(mock.NewLLMClient(), nil, nil)
	got := a.Analyze(context.Background(), dieter.AnalysisRequest{Description: "stew"})
	assert.Equal(t, "Kimchi stew", got.FoodName)
	assert.Equal(t, 450.0, got.Calories)
}

func TestAnalyzer_FileLoggerSession(t *testing.T) {
	var buf bytes.Buffer
	logger := dieter.NewFileAnalysisLogger(&buf)
	a := NewAnalyzer(mock.NewLLMClient(), newTestBuilder(t), logger)

	a.Analyze(context.Background(), dieter.AnalysisRequest{Description: "stew"})
	require.NoError(t, logger.Flush())

	var session struct {
		AnalysisSession struct {
			Attempts []dieter.AttemptLog `json:"attempts"`
		} `json:"analysis_session"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &session))
	require.Len(t, session.AnalysisSession.Attempts, 1)
	assert.Equal(t, "Kimchi stew", session.AnalysisSession.Attempts[0].Record.FoodName)
}

// slowLLM blocks until released or canceled
type slowLLM struct {
	mu      sync.Mutex
	active  int
	peak    int
	release chan struct{}
}

func (s *slowLLM) Generate(ctx context.Context, req dieter.AnalysisRequest) (string, error) {
	s.mu.Lock()
	s.active++
	if s.active > s.peak {
		s.peak = s.active
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	select {
	case <-s.release:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	return `{"foodName":"` + req.Description + `","calories":100}`, nil
}

func TestAnalyzer_AnalyzeBatch(t *testing.T) {
	t.Run("results follow request order within the limit", func(t *testing.T) {
		llm := &slowLLM{release: make(chan struct{})}
		a := NewAnalyzer(llm, newTestBuilder(t), nil)

		reqs := []dieter.AnalysisRequest{
			{Description: "Toast"}, {Description: "Soup"}, {Description: "Salad"},
			{Description: "Rice"}, {Description: "Tea"},
		}
		got, err := a.AnalyzeBatch(context.Background(), reqs, 2)
		require.NoError(t, err)
		require.Len(t, got, len(reqs))
		for i, req := range reqs {
			assert.Equal(t, req.Description, got[i].FoodName)
			assert.Equal(t, 100.0, got[i].Calories)
		}
		assert.LessOrEqual(t, llm.peak, 2)
	})

	t.Run("canceled context leaves fallbacks", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		a := NewAnalyzer(mock.NewLLMClient(), newTestBuilder(t), nil)
		got, err := a.AnalyzeBatch(ctx, []dieter.AnalysisRequest{{Description: "a"}, {Description: "b"}}, 1)
		assert.ErrorIs(t, err, context.Canceled)
		require.Len(t, got, 2)
		for _, rec := range got {
			assert.True(t, rec.IsFallback())
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		a := NewAnalyzer(mock.NewLLMClient(), newTestBuilder(t), nil)
		got, err := a.AnalyzeBatch(context.Background(), nil, 4)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestUserPrompt(t *testing.T) {
	assert.Equal(t, "Analyze this food: bibimbap", UserPrompt(dieter.AnalysisRequest{Description: " bibimbap "}))
	assert.Equal(t, "Analyze the food in this photo.", UserPrompt(dieter.AnalysisRequest{Image: []byte{1}}))
	assert.Equal(t, "Analyze the food in this photo. Additional notes: half portion",
		UserPrompt(dieter.AnalysisRequest{Image: []byte{1}, Description: "half portion"}))
}

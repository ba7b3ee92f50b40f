package mock

import (
	"context"
	"log/slog"
	"sync"

	"dieter"
)

// DefaultText is returned when the client was built without scripted responses.
// It is wrapped in prose and a fence the way chat models usually answer.
const DefaultText = "Here is the analysis:\n```json\n" +
	`{"foodName": "Kimchi stew", "calories": "about 450kcal", "nutrients": {"protein": "20g", "fat": "15g", "carbohydrates": 30, "sugar": 5, "sodium": "900mg"}}` +
	"\n```"

// Response is one scripted reply.
type Response struct {
	Text string
	Err  error
}

// LLMClient replays scripted responses in order and repeats the last one
// once the script runs out. It is safe for concurrent use.
type LLMClient struct {
	mu        sync.Mutex
	responses []Response
	requests  []dieter.AnalysisRequest
}

func NewLLMClient(responses ...Response) *LLMClient {
	if len(responses) == 0 {
		responses = []Response{{Text: DefaultText}}
	}
	return &LLMClient{responses: responses}
}

func (m *LLMClient) Generate(ctx context.Context, req dieter.AnalysisRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := len(m.requests)
	m.requests = append(m.requests, req)
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}

	slog.Info("LLM_CLIENT: Invoked", "call", len(m.requests), "source", req.Source())
	return m.responses[i].Text, m.responses[i].Err
}

// Requests returns the requests received so far.
func (m *LLMClient) Requests() []dieter.AnalysisRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]dieter.AnalysisRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"dieter"
	"dieter/analyzer"
	"dieter/tools"
)

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

type Client struct {
	endpoint     string
	model        string
	systemPrompt string
	format       json.RawMessage
	httpClient   dieter.HTTPClient
	options      options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   dieter.HTTPClient

	// SystemPrompt defaults to analyzer.SystemPrompt.
	SystemPrompt string

	// ReportTool, when set, constrains the reply to its input schema.
	// Otherwise the reply is only constrained to be JSON.
	ReportTool tools.Tool
}

func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.BaseEndpoint) == "" {
		return nil, fmt.Errorf("missing ollama endpoint")
	}
	if opts.ModelID == "" {
		return nil, fmt.Errorf("missing model id")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = analyzer.SystemPrompt
	}

	format := json.RawMessage(`"json"`)
	if opts.ReportTool != nil {
		b, err := json.Marshal(opts.ReportTool.InputSchema())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema for %s: %w", opts.ReportTool.Name(), err)
		}
		format = b
	}

	return &Client{
		model:        opts.ModelID,
		systemPrompt: opts.SystemPrompt,
		format:       format,
		httpClient:   opts.HTTPClient,
		endpoint:     strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   0.2,
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        8192, // vision models need room for image tokens
		},
	}, nil
}

type wireMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type wireResponse struct {
	Message wireMessage `json:"message"`
	// other metadata omitted but available
}

type wireRequest struct {
	Model    string          `json:"model"`
	Messages []wireMessage   `json:"messages"`
	Format   json.RawMessage `json:"format,omitempty"`
	Stream   bool            `json:"stream"`
	Options  options         `json:"options,omitempty"`
}

// Generate sends one analysis turn to the Ollama chat API and returns the
// message content verbatim.
func (c *Client) Generate(ctx context.Context, req dieter.AnalysisRequest) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "source", req.Source(), "image_bytes", len(req.Image))

	user := wireMessage{Role: "user", Content: analyzer.UserPrompt(req)}
	if len(req.Image) > 0 {
		user.Images = []string{base64.StdEncoding.EncodeToString(req.Image)}
	}

	reqBody := wireRequest{
		Model: c.model,
		Messages: []wireMessage{
			{Role: "system", Content: c.systemPrompt},
			user,
		},
		Format:  c.format,
		Stream:  false,
		Options: c.options,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("LLM_CLIENT: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LLM_CLIENT: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		slog.Warn("LLM_CLIENT: decode failed, returning raw", "err", err, "body_len", len(body))
		return string(body), nil
	}

	return wr.Message.Content, nil
}

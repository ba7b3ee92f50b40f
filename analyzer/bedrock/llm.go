package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"dieter"
	"dieter/analyzer"
	"dieter/tools"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	// defaultModelID is the default model ID for Bedrock Claude.
	// It's an inference profile ID or ARN, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// A nutrition object is small; 1k leaves room for models that think out loud first.
	defaultMaxTokens = 1024

	// Low temperature keeps estimates for the same photo consistent between attempts.
	defaultTemperature = 0.2

	defaultTopP = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type LLMOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32

	// ReportTool, when set, is forced as the only tool so the model answers
	// through its input schema instead of free text.
	ReportTool tools.Tool
}

type LLMClient struct {
	brc  bedrockRuntimeClient
	opts LLMOptions
}

func NewLLMClient(brc bedrockRuntimeClient, opts LLMOptions) *LLMClient {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &LLMClient{
		brc:  brc,
		opts: opts,
	}
}

// Generate sends one analysis turn to the Converse API and returns the model's
// answer as text. A forced tool call is returned as its JSON input.
func (c *LLMClient) Generate(ctx context.Context, req dieter.AnalysisRequest) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "source", req.Source(), "image_bytes", len(req.Image))

	in, err := c.buildInput(req)
	if err != nil {
		return "", err
	}

	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("LLM_CLIENT: Bedrock invoke failed", "error", err, "model_id", c.opts.ModelID)
		return "", err
	}

	attrs := []any{"stop_reason", out.StopReason}
	if out.Metrics != nil {
		attrs = append(attrs, "latency_ms", aws.ToInt64(out.Metrics.LatencyMs))
	}
	if out.Usage != nil {
		attrs = append(attrs, "input_tokens", aws.ToInt32(out.Usage.InputTokens), "output_tokens", aws.ToInt32(out.Usage.OutputTokens))
	}
	slog.Info("LLM_CLIENT: Bedrock invoke succeeded", attrs...)

	switch out.StopReason {
	case "tool_use":
		calls, err := toolCallsFromOutput(out)
		if err != nil {
			return "", fmt.Errorf("failed to parse tool calls: %w", err)
		}
		for _, call := range calls {
			if c.opts.ReportTool != nil && call.Name != c.opts.ReportTool.Name() {
				continue
			}
			b, err := json.Marshal(call.Input)
			if err != nil {
				return "", fmt.Errorf("failed to encode %s input: %w", call.Name, err)
			}
			slog.Info("LLM_CLIENT: Extracted tool input", "tool", call.Name, "input_len", len(b))
			return string(b), nil
		}
		return "", fmt.Errorf("model stopped for tool use without calling the report tool")

	case "end_turn", "stop_sequence":
		text, err := textFromOutput(out)
		if err != nil {
			return "", fmt.Errorf("failed to extract final text: %w", err)
		}
		slog.Info("LLM_CLIENT: Extracted final text", "text_len", len(text))
		return text, nil

	case "max_tokens":
		slog.Warn("LLM_CLIENT: Model hit MaxTokens limit; consider increasing MaxTokens")
		return "", fmt.Errorf("model hit MaxTokens limit; consider increasing MaxTokens")

	case "guardrail_intervened", "content_filtered":
		slog.Warn("LLM_CLIENT: Model response blocked by Bedrock safety filters")
		return "", fmt.Errorf("model response blocked by Bedrock safety filters")

	default:
		// Fallback if the model didn't specify a stop reason
		return textFromOutput(out)
	}
}

func (c *LLMClient) buildInput(req dieter.AnalysisRequest) (*bedrockruntime.ConverseInput, error) {
	var content []types.ContentBlock
	if len(req.Image) > 0 {
		format, err := imageFormat(req.MimeType)
		if err != nil {
			return nil, err
		}
		content = append(content, &types.ContentBlockMemberImage{Value: types.ImageBlock{
			Format: format,
			Source: &types.ImageSourceMemberBytes{Value: req.Image},
		}})
	}
	content = append(content, &types.ContentBlockMemberText{Value: analyzer.UserPrompt(req)})

	in := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.opts.ModelID),
		System:  []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: analyzer.SystemPrompt}},
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: content,
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}

	if c.opts.ReportTool != nil {
		spec, err := buildToolSpec(c.opts.ReportTool)
		if err != nil {
			return nil, err
		}
		in.ToolConfig = &types.ToolConfiguration{
			Tools: []types.Tool{&types.ToolMemberToolSpec{Value: spec}},
			ToolChoice: &types.ToolChoiceMemberTool{Value: types.SpecificToolChoice{
				Name: aws.String(c.opts.ReportTool.Name()),
			}},
		}
	}

	return in, nil
}

func imageFormat(mimeType string) (types.ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return types.ImageFormatJpeg, nil
	case "image/png":
		return types.ImageFormatPng, nil
	case "image/gif":
		return types.ImageFormatGif, nil
	case "image/webp":
		return types.ImageFormatWebp, nil
	default:
		return "", fmt.Errorf("unsupported image type %q", mimeType)
	}
}

// buildToolSpec constructs a ToolSpecification for a tool.
func buildToolSpec(t tools.Tool) (types.ToolSpecification, error) {
	// The schema goes through its own MarshalJSON before becoming a document.
	schemaJSON, err := json.Marshal(t.InputSchema())
	if err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to marshal tool schema for %s: %w", t.Name(), err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to unmarshal tool schema for %s: %w", t.Name(), err)
	}

	return types.ToolSpecification{
		Name:        aws.String(t.Name()),
		Description: aws.String(t.Description()),
		InputSchema: &types.ToolInputSchemaMemberJson{
			Value: document.NewLazyDocument(schemaMap),
		},
	}, nil
}

// textFromOutput returns the assistant text:
// 1) If any text block looks like a single JSON object, return the last such block.
// 2) Else, join all text blocks with '\n'.
func textFromOutput(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil || out.Output == nil {
		return "", nil
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || len(msg.Value.Content) == 0 {
		return "", nil
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}

	for i := len(texts) - 1; i >= 0; i-- {
		s := strings.TrimSpace(texts[i])
		if len(s) > 1 && s[0] == '{' && s[len(s)-1] == '}' {
			return s, nil
		}
	}

	return strings.Join(texts, "\n"), nil
}

// toolCallsFromOutput extracts tool uses emitted by the assistant.
func toolCallsFromOutput(out *bedrockruntime.ConverseOutput) ([]tools.Call, error) {
	var calls []tools.Call

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || msg.Value.Content == nil {
		return calls, nil
	}

	for _, cb := range msg.Value.Content {
		tu, ok := cb.(*types.ContentBlockMemberToolUse)
		if !ok || tu == nil {
			continue
		}

		var input map[string]any
		if tu.Value.Input != nil {
			// Round-trip through JSON: lazy documents only unmarshal into
			// the type they were built from.
			b, err := tu.Value.Input.MarshalSmithyDocument()
			if err != nil {
				return nil, fmt.Errorf("encode %s input: %w", aws.ToString(tu.Value.Name), err)
			}
			if err := json.Unmarshal(b, &input); err != nil {
				return nil, fmt.Errorf("decode %s input: %w", aws.ToString(tu.Value.Name), err)
			}
		}
		if input == nil {
			input = map[string]any{}
		}

		calls = append(calls, tools.Call{
			Name:      aws.ToString(tu.Value.Name),
			Input:     input,
			ToolUseID: aws.ToString(tu.Value.ToolUseId),
		})
	}

	return calls, nil
}

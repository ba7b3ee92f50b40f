package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dieter"
	"dieter/intake"
	"dieter/retry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 200

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("recommendation service returned %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether the status is worth another attempt.
func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Client struct {
	endpoint   string
	httpClient dieter.HTTPClient
	policy     retry.Policy
	timeout    time.Duration
	tracer     trace.Tracer
}

type ClientOpts struct {
	Endpoint   string
	HTTPClient dieter.HTTPClient
	Policy     retry.Policy

	// RequestTimeout bounds each attempt. Zero means only ctx applies.
	RequestTimeout time.Duration

	// Tracer defaults to the global tracer named dieter.TracerNameRecommender.
	Tracer trace.Tracer
}

func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("missing recommendation endpoint")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(dieter.TracerNameRecommender)
	}
	return &Client{
		endpoint:   opts.Endpoint,
		httpClient: opts.HTTPClient,
		policy:     opts.Policy,
		timeout:    opts.RequestTimeout,
		tracer:     opts.Tracer,
	}, nil
}

// Recommend asks the service for ranked candidates and merges them into one
// suggestion. An empty reply yields intake.NoSuitableMenu.
func (c *Client) Recommend(ctx context.Context, req intake.RecommendationRequest) (intake.Recommendation, error) {
	cands, err := c.Candidates(ctx, req)
	if err != nil {
		return intake.Recommendation{}, err
	}
	return intake.Summarize(cands), nil
}

// Candidates posts req and decodes the ranked reply, retrying transient
// failures under the client's policy.
func (c *Client) Candidates(ctx context.Context, req intake.RecommendationRequest) ([]intake.Candidate, error) {
	ctx, span := c.tracer.Start(ctx, "Client.Candidates", trace.WithAttributes(
		attribute.Int("recommendation.recent_food_names", len(req.RecentFoodNames)),
	))
	defer span.End()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode recommendation request: %w", err)
	}

	slog.Info("RECOMMENDER: Requesting recommendations", "endpoint", c.endpoint, "payload_bytes", len(payload))

	body, err := retry.Do(ctx, c.policy, "recommend", func() ([]byte, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recommendation request failed")
		slog.Error("RECOMMENDER: Recommendation request failed", "error", err)
		return nil, fmt.Errorf("recommend: %w", err)
	}

	cands := intake.DecodeCandidates(body)
	span.SetAttributes(attribute.Int("recommendation.candidates", len(cands)))
	slog.Info("RECOMMENDER: Recommendations received", "candidates", len(cands))
	return cands, nil
}

func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read recommendation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		preview := string(body)
		if len(preview) > maxErrorBody {
			preview = preview[:maxErrorBody] + "..."
		}
		serr := &StatusError{StatusCode: resp.StatusCode, Body: preview}
		if !serr.retryable() {
			return nil, retry.Permanent(serr)
		}
		return nil, serr
	}

	return body, nil
}

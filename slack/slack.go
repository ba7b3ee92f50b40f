package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"dieter/intake"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts messages to a Slack incoming webhook.
type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	body := map[string]any{"text": message}
	if channel != "" {
		body["channel"] = channel
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// FormatRecommendation renders a recommendation as Slack mrkdwn.
func FormatRecommendation(totals intake.DailyTotals, rec intake.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Next meal:* %s (%skcal)\n", rec.MenuName, num(rec.Calories))

	progress := totals.Progress()
	fmt.Fprintf(&b, "_Today:_ %s / %s kcal (%s%%)\n",
		num(totals.Intake.Calories), num(totals.RDA.Calories), num(progress.Calories))

	if rec.Reason != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(rec.Reason, "\n") {
			if line == "" {
				b.WriteString("\n")
				continue
			}
			fmt.Fprintf(&b, "> %s\n", line)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 0, 64)
}

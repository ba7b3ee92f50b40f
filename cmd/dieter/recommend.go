package main

import (
	"fmt"
	"net/http"

	"dieter"
	"dieter/intake"
	"dieter/recommender"
	"dieter/retry"
	"dieter/slack"

	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"
)

var (
	recommendGender   string
	recommendDate     string
	recommendSubject  string
	recommendRecent   int
	recommendEndpoint string
	slackWebhook      string
	slackChannel      string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Ask the recommendation service for the next meal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		day, err := parseDay(recommendDate)
		if err != nil {
			return err
		}
		cfg, err := loadPipelineConfig()
		if err != nil {
			return err
		}
		var retryConfig dieter.RetryConfig
		if err := envdecode.Decode(&retryConfig); err != nil {
			return fmt.Errorf("decode retry config: %w", err)
		}

		totals, entries, err := dailyTotals(ctx, cfg, recommendGender, recommendSubject, day)
		if err != nil {
			return err
		}

		recent := intake.RecentFoodNames(entriesFor(entries, recommendSubject), recommendRecent)
		req := intake.NewComposer().Compose(totals, recent)
		if debug {
			dieter.Dump(req)
		}

		endpoint := cfg.RecommenderEndpoint
		if recommendEndpoint != "" {
			endpoint = recommendEndpoint
		}
		client, err := recommender.NewClient(recommender.ClientOpts{
			Endpoint:       endpoint,
			HTTPClient:     http.DefaultClient,
			Policy:         retry.FromConfig(retryConfig),
			RequestTimeout: retryConfig.RequestTimeout,
		})
		if err != nil {
			return err
		}

		rec, err := client.Recommend(ctx, req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Recommendation: %s (%.0f kcal)\n", rec.MenuName, rec.Calories)
		fmt.Fprintln(out, rec.Reason)

		if slackWebhook != "" {
			var notifier dieter.SlackClient = slack.NewClient(slackWebhook, http.DefaultClient)
			if err := notifier.PostMessage(ctx, slackChannel, slack.FormatRecommendation(totals, rec)); err != nil {
				return fmt.Errorf("post to slack: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().StringVar(&recommendGender, "gender", "", "male or female")
	recommendCmd.Flags().StringVar(&recommendDate, "date", "", "Date YYYY-MM-DD (default today)")
	recommendCmd.Flags().StringVar(&recommendSubject, "subject", "", "Only consider this subject's records")
	recommendCmd.Flags().IntVar(&recommendRecent, "recent", 5, "How many recent food names to send (0 for all)")
	recommendCmd.Flags().StringVar(&recommendEndpoint, "endpoint", "", "Recommendation endpoint (default $RECOMMENDER_ENDPOINT)")
	recommendCmd.Flags().StringVar(&slackWebhook, "slack-webhook", "", "Also post the recommendation to this Slack webhook")
	recommendCmd.Flags().StringVar(&slackChannel, "slack-channel", "", "Slack channel override")
	_ = recommendCmd.MarkFlagRequired("gender")
}

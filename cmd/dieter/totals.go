package main

import (
	"encoding/json"
	"fmt"
	"io"

	"dieter"
	"dieter/intake"

	"github.com/spf13/cobra"
)

var (
	totalsGender  string
	totalsDate    string
	totalsSubject string
	totalsJSON    bool
)

var totalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Show a day's intake against the recommended daily allowances",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay(totalsDate)
		if err != nil {
			return err
		}
		cfg, err := loadPipelineConfig()
		if err != nil {
			return err
		}

		totals, _, err := dailyTotals(cmd.Context(), cfg, totalsGender, totalsSubject, day)
		if err != nil {
			return err
		}
		if debug {
			dieter.Dump(totals)
		}

		if totalsJSON {
			data, err := json.MarshalIndent(map[string]any{
				"date":      day.Format("2006-01-02"),
				"intake":    totals.Intake,
				"rda":       totals.RDA,
				"progress":  totals.Progress(),
				"remaining": totals.Remaining(),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Date: %s\n", day.Format("2006-01-02"))
		printTotals(cmd.OutOrStdout(), totals)
		return nil
	},
}

func printTotals(w io.Writer, totals intake.DailyTotals) {
	p := totals.Progress()
	r := totals.Remaining()
	fmt.Fprintf(w, "Intake: %.0f kcal of %.0f (%.1f%%)\n", totals.Intake.Calories, totals.RDA.Calories, p.Calories)
	fmt.Fprintf(w, "Protein: %.1fg of %.1fg (%.1f%%)\n", totals.Intake.Protein, totals.RDA.Protein, p.Protein)
	fmt.Fprintf(w, "Fat: %.1fg of %.1fg (%.1f%%)\n", totals.Intake.Fat, totals.RDA.Fat, p.Fat)
	fmt.Fprintf(w, "Carbohydrates: %.1fg of %.1fg (%.1f%%)\n", totals.Intake.Carbohydrates, totals.RDA.Carbohydrates, p.Carbohydrates)
	fmt.Fprintf(w, "Sugar: %.1fg of %.1fg (%.1f%%)\n", totals.Intake.Sugar, totals.RDA.Sugar, p.Sugar)
	fmt.Fprintf(w, "Sodium: %.0fmg of %.0fmg (%.1f%%)\n", totals.Intake.Sodium, totals.RDA.Sodium, p.Sodium)
	fmt.Fprintf(w, "Remaining: %.0f kcal | P %.1fg | F %.1fg | C %.1fg | S %.1fg | Na %.0fmg\n",
		r.Calories, r.Protein, r.Fat, r.Carbohydrates, r.Sugar, r.Sodium)
}

func init() {
	rootCmd.AddCommand(totalsCmd)
	totalsCmd.Flags().StringVar(&totalsGender, "gender", "", "male or female")
	totalsCmd.Flags().StringVar(&totalsDate, "date", "", "Date YYYY-MM-DD (default today)")
	totalsCmd.Flags().StringVar(&totalsSubject, "subject", "", "Only count this subject's records")
	totalsCmd.Flags().BoolVar(&totalsJSON, "json", false, "Print JSON instead of text")
	_ = totalsCmd.MarkFlagRequired("gender")
}

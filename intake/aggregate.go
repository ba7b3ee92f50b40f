package intake

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"dieter"
)

// ErrUnknownGender is returned when a gender outside the RDA table reaches the aggregator.
var ErrUnknownGender = errors.New("unknown gender")

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// ParseGender validates caller input before it reaches the aggregator.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case Male, Female:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGender, s)
	}
}

// Amounts is a set of daily quantities: kcal for calories, grams for
// protein, fat, carbohydrates and sugar, milligrams for sodium.
type Amounts struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbohydrates"`
	Sugar         float64 `json:"sugar"`
	Sodium        float64 `json:"sodium"`
}

func (a Amounts) add(r dieter.NutritionRecord) Amounts {
	a.Calories += nonNegative(r.Calories)
	a.Protein += nonNegative(r.Nutrients.Protein)
	a.Fat += nonNegative(r.Nutrients.Fat)
	a.Carbohydrates += nonNegative(r.Nutrients.Carbohydrates)
	a.Sugar += nonNegative(r.Nutrients.Sugar)
	a.Sodium += nonNegative(r.Nutrients.Sodium)
	return a
}

// RDATable holds the recommended daily allowances per gender. It is a value
// type and never changes after construction.
type RDATable struct {
	male   Amounts
	female Amounts
}

func NewRDATable(male, female Amounts) RDATable {
	return RDATable{male: male, female: female}
}

// DefaultRDATable returns the allowances the service shipped with.
func DefaultRDATable() RDATable {
	return NewRDATable(
		Amounts{Calories: 2500, Protein: 60, Fat: 54, Carbohydrates: 324, Sugar: 50, Sodium: 2000},
		Amounts{Calories: 2000, Protein: 50, Fat: 45, Carbohydrates: 270, Sugar: 50, Sodium: 2000},
	)
}

// RDATableFromConfig builds the table from env-decoded configuration.
func RDATableFromConfig(cfg dieter.RDAConfig) RDATable {
	return NewRDATable(
		Amounts{
			Calories:      cfg.MaleCalories,
			Protein:       cfg.MaleProtein,
			Fat:           cfg.MaleFat,
			Carbohydrates: cfg.MaleCarbohydrates,
			Sugar:         cfg.MaleSugar,
			Sodium:        cfg.MaleSodium,
		},
		Amounts{
			Calories:      cfg.FemaleCalories,
			Protein:       cfg.FemaleProtein,
			Fat:           cfg.FemaleFat,
			Carbohydrates: cfg.FemaleCarbohydrates,
			Sugar:         cfg.FemaleSugar,
			Sodium:        cfg.FemaleSodium,
		},
	)
}

// Lookup returns the allowances for g.
func (t RDATable) Lookup(g Gender) (Amounts, error) {
	switch g {
	case Male:
		return t.male, nil
	case Female:
		return t.female, nil
	default:
		return Amounts{}, fmt.Errorf("%w: %q", ErrUnknownGender, string(g))
	}
}

// DailyTotals compares what a subject ate today against their allowances.
type DailyTotals struct {
	Intake Amounts `json:"intake"`
	RDA    Amounts `json:"rda"`
}

// Progress returns intake as a percentage of each allowance. Fields with a
// zero allowance report 0.
func (d DailyTotals) Progress() Amounts {
	return Amounts{
		Calories:      percent(d.Intake.Calories, d.RDA.Calories),
		Protein:       percent(d.Intake.Protein, d.RDA.Protein),
		Fat:           percent(d.Intake.Fat, d.RDA.Fat),
		Carbohydrates: percent(d.Intake.Carbohydrates, d.RDA.Carbohydrates),
		Sugar:         percent(d.Intake.Sugar, d.RDA.Sugar),
		Sodium:        percent(d.Intake.Sodium, d.RDA.Sodium),
	}
}

// Remaining returns how much of each allowance is left, never below zero.
func (d DailyTotals) Remaining() Amounts {
	return Amounts{
		Calories:      nonNegative(d.RDA.Calories - d.Intake.Calories),
		Protein:       nonNegative(d.RDA.Protein - d.Intake.Protein),
		Fat:           nonNegative(d.RDA.Fat - d.Intake.Fat),
		Carbohydrates: nonNegative(d.RDA.Carbohydrates - d.Intake.Carbohydrates),
		Sugar:         nonNegative(d.RDA.Sugar - d.Intake.Sugar),
		Sodium:        nonNegative(d.RDA.Sodium - d.Intake.Sodium),
	}
}

// Aggregator folds a day's records into totals. It holds only the immutable
// RDA table and is safe for concurrent use.
type Aggregator struct {
	rda RDATable
}

func NewAggregator(rda RDATable) *Aggregator {
	return &Aggregator{rda: rda}
}

// Aggregate recomputes the totals from scratch for the given snapshot of
// records. The only error is ErrUnknownGender: callers are expected to have
// validated g with ParseGender.
func (a *Aggregator) Aggregate(records []dieter.NutritionRecord, g Gender) (DailyTotals, error) {
	rda, err := a.rda.Lookup(g)
	if err != nil {
		return DailyTotals{}, err
	}

	var intake Amounts
	for _, r := range records {
		intake = intake.add(r)
	}

	return DailyTotals{Intake: intake, RDA: rda}, nil
}

func percent(v, of float64) float64 {
	if of <= 0 {
		return 0
	}
	return v / of * 100
}

func nonNegative(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

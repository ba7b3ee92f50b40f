package intake

import (
	"testing"

	"dieter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []dieter.NutritionRecord {
	return []dieter.NutritionRecord{
		{
			FoodName: "Kimchi stew",
			Calories: 450,
			Nutrients: dieter.Nutrients{
				Protein: 20, Fat: 15, Carbohydrates: 30, Sugar: 5, Sodium: 900,
			},
		},
		{
			FoodName: "Rice",
			Calories: 300,
			Nutrients: dieter.Nutrients{
				Protein: 5, Fat: 0.5, Carbohydrates: 65, Sodium: 2,
			},
		},
		dieter.FallbackRecord(),
	}
}

func TestParseGender(t *testing.T) {
	tests := []struct {
		input    string
		expected Gender
		wantErr  bool
	}{
		{input: "male", expected: Male},
		{input: " Female ", expected: Female},
		{input: "MALE", expected: Male},
		{input: "other", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			g, err := ParseGender(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownGender)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, g)
		})
	}
}

func TestRDATable_Lookup(t *testing.T) {
	table := DefaultRDATable()

	male, err := table.Lookup(Male)
	require.NoError(t, err)
	assert.Equal(t, Amounts{Calories: 2500, Protein: 60, Fat: 54, Carbohydrates: 324, Sugar: 50, Sodium: 2000}, male)

	female, err := table.Lookup(Female)
	require.NoError(t, err)
	assert.Equal(t, Amounts{Calories: 2000, Protein: 50, Fat: 45, Carbohydrates: 270, Sugar: 50, Sodium: 2000}, female)

	_, err = table.Lookup(Gender("robot"))
	assert.ErrorIs(t, err, ErrUnknownGender)
}

func TestRDATableFromConfig(t *testing.T) {
	cfg := dieter.RDAConfig{
		MaleCalories: 2600, MaleProtein: 65, MaleFat: 55, MaleCarbohydrates: 330, MaleSugar: 40, MaleSodium: 1800,
		FemaleCalories: 1900, FemaleProtein: 45, FemaleFat: 40, FemaleCarbohydrates: 250, FemaleSugar: 35, FemaleSodium: 1500,
	}
	table := RDATableFromConfig(cfg)

	male, err := table.Lookup(Male)
	require.NoError(t, err)
	assert.Equal(t, 2600.0, male.Calories)
	assert.Equal(t, 1800.0, male.Sodium)

	female, err := table.Lookup(Female)
	require.NoError(t, err)
	assert.Equal(t, 250.0, female.Carbohydrates)
	assert.Equal(t, 35.0, female.Sugar)
}

func TestAggregator_Aggregate(t *testing.T) {
	agg := NewAggregator(DefaultRDATable())

	t.Run("sums every field", func(t *testing.T) {
		totals, err := agg.Aggregate(sampleRecords(), Male)
		require.NoError(t, err)

		assert.Equal(t, Amounts{
			Calories:      750,
			Protein:       25,
			Fat:           15.5,
			Carbohydrates: 95,
			Sugar:         5,
			Sodium:        902,
		}, totals.Intake)
		assert.Equal(t, 2500.0, totals.RDA.Calories)
	})

	t.Run("empty record set", func(t *testing.T) {
		totals, err := agg.Aggregate(nil, Male)
		require.NoError(t, err)
		assert.Zero(t, totals.Intake.Calories)
		assert.Equal(t, Amounts{}, totals.Intake)
	})

	t.Run("idempotent", func(t *testing.T) {
		records := sampleRecords()
		first, err := agg.Aggregate(records, Female)
		require.NoError(t, err)
		second, err := agg.Aggregate(records, Female)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("order does not matter", func(t *testing.T) {
		records := sampleRecords()
		reversed := []dieter.NutritionRecord{records[2], records[1], records[0]}

		a, err := agg.Aggregate(records, Male)
		require.NoError(t, err)
		b, err := agg.Aggregate(reversed, Male)
		require.NoError(t, err)
		assert.InDelta(t, a.Intake.Calories, b.Intake.Calories, 1e-9)
		assert.InDelta(t, a.Intake.Fat, b.Intake.Fat, 1e-9)
	})

	t.Run("unknown gender is rejected", func(t *testing.T) {
		_, err := agg.Aggregate(sampleRecords(), Gender("unknown"))
		assert.ErrorIs(t, err, ErrUnknownGender)
	})

	t.Run("invalid values are ignored", func(t *testing.T) {
		records := []dieter.NutritionRecord{{FoodName: "Bad", Calories: -50, Nutrients: dieter.Nutrients{Fat: -1}}}
		totals, err := agg.Aggregate(records, Male)
		require.NoError(t, err)
		assert.Equal(t, Amounts{}, totals.Intake)
	})
}

func TestAggregator_ConcurrentUse(t *testing.T) {
	agg := NewAggregator(DefaultRDATable())
	records := sampleRecords()

	done := make(chan DailyTotals)
	for i := 0; i < 8; i++ {
		go func() {
			totals, _ := agg.Aggregate(records, Male)
			done <- totals
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, 750.0, (<-done).Intake.Calories)
	}
}

func TestDailyTotals_ProgressAndRemaining(t *testing.T) {
	totals := DailyTotals{
		Intake: Amounts{Calories: 1250, Protein: 90, Sodium: 1000},
		RDA:    Amounts{Calories: 2500, Protein: 60, Sodium: 2000},
	}

	progress := totals.Progress()
	assert.InDelta(t, 50.0, progress.Calories, 1e-9)
	assert.InDelta(t, 150.0, progress.Protein, 1e-9)
	assert.InDelta(t, 50.0, progress.Sodium, 1e-9)
	assert.Zero(t, progress.Fat, "zero allowance reports zero")

	remaining := totals.Remaining()
	assert.Equal(t, 1250.0, remaining.Calories)
	assert.Zero(t, remaining.Protein, "overshoot never goes negative")
	assert.Equal(t, 1000.0, remaining.Sodium)
}

package nutrition

import (
	"testing"

	"dieter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	s, err := NewSanitizer("Latin", "Hangul")
	require.NoError(t, err)
	return NewBuilder(s)
}

func TestBuilder_Build(t *testing.T) {
	b := newTestBuilder(t)

	tests := []struct {
		name     string
		raw      string
		expected dieter.NutritionRecord
	}{
		{
			name: "valid json with units in values",
			raw:  `{"foodName":"Kimchi stew","calories":"약 450kcal","nutrients":{"protein":20,"fat":"15g","carbohydrates":30,"sugar":5,"sodium":900}}`,
			expected: dieter.NutritionRecord{
				FoodName: "Kimchi stew",
				Calories: 450,
				Nutrients: dieter.Nutrients{
					Protein: 20, Fat: 15, Carbohydrates: 30, Sugar: 5, Sodium: 900,
				},
			},
		},
		{
			name: "fenced korean response",
			raw:  "분석 결과입니다.\n```json\n{\"foodName\": \"비빔밥\", \"calories\": \"약 600kcal\", \"nutrients\": {\"protein\": \"20g\", \"fat\": \"12g\", \"carbohydrates\": \"95g\", \"sugar\": \"8g\", \"sodium\": \"1200mg\"}}\n```",
			expected: dieter.NutritionRecord{
				FoodName: "비빔밥",
				Calories: 600,
				Nutrients: dieter.Nutrients{
					Protein: 20, Fat: 12, Carbohydrates: 95, Sugar: 8, Sodium: 1200,
				},
			},
		},
		{
			name: "missing nutrients default to zero",
			raw:  `Sure! {"foodName":"Apple","calories":95}`,
			expected: dieter.NutritionRecord{
				FoodName: "Apple",
				Calories: 95,
			},
		},
		{
			name: "partial nutrients",
			raw:  `{"foodName":"Egg","calories":78,"nutrients":{"protein":"6.3g"}}`,
			expected: dieter.NutritionRecord{
				FoodName:  "Egg",
				Calories:  78,
				Nutrients: dieter.Nutrients{Protein: 6.3},
			},
		},
		{
			name: "missing food name",
			raw:  `{"calories":"200"}`,
			expected: dieter.NutritionRecord{
				FoodName: dieter.UnknownFoodName,
				Calories: 200,
			},
		},
		{
			name: "blank food name",
			raw:  `{"foodName":"   ","calories":10}`,
			expected: dieter.NutritionRecord{
				FoodName: dieter.UnknownFoodName,
				Calories: 10,
			},
		},
		{
			name: "nutrients of the wrong shape are ignored",
			raw:  `{"foodName":"Tea","calories":2,"nutrients":[1,2,3]}`,
			expected: dieter.NutritionRecord{
				FoodName: "Tea",
				Calories: 2,
			},
		},
		{
			name: "negative values clamp to zero",
			raw:  `{"foodName":"Oddity","calories":-100,"nutrients":{"fat":-3}}`,
			expected: dieter.NutritionRecord{
				FoodName: "Oddity",
			},
		},
		{
			name:     "garbage text",
			raw:      "I cannot analyze this image",
			expected: dieter.FallbackRecord(),
		},
		{
			name:     "empty text",
			raw:      "",
			expected: dieter.FallbackRecord(),
		},
		{
			name:     "malformed json",
			raw:      `{"foodName": "Soup", "calories": }`,
			expected: dieter.FallbackRecord(),
		},
		{
			name:     "json array instead of object",
			raw:      "```json\n[{\"foodName\":\"A\"}]\n```",
			expected: dieter.FallbackRecord(),
		},
		{
			name:     "literal null",
			raw:      "```json\nnull\n```",
			expected: dieter.FallbackRecord(),
		},
		{
			name:     "escaped quote breaks the sanitized payload",
			raw:      `{"foodName":"The \"best\" soup","calories":300}`,
			expected: dieter.FallbackRecord(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.Build(tt.raw)
			assert.Equal(t, tt.expected, got)
			assert.True(t, got.IsValid())
		})
	}
}

func TestBuilder_FallbackRecord(t *testing.T) {
	got := newTestBuilder(t).Build("I cannot analyze this image")

	assert.True(t, got.IsFallback())
	assert.Equal(t, dieter.FallbackFoodName, got.FoodName)
	assert.Zero(t, got.Calories)
	assert.Equal(t, dieter.Nutrients{}, got.Nutrients)
}

func TestBuilder_Trace(t *testing.T) {
	b := newTestBuilder(t)

	t.Run("success exposes payloads", func(t *testing.T) {
		rec, tr := b.Trace("prefix ```json\n{\"foodName\":\"Rice (white)\",\"calories\":130}\n``` suffix")

		require.NoError(t, tr.Err)
		assert.False(t, tr.Fallback())
		assert.Equal(t, `{"foodName":"Rice (white)","calories":130}`, tr.Payload)
		assert.Equal(t, `{"foodName":"Rice white","calories":130}`, tr.Sanitized)
		assert.Equal(t, "Rice white", rec.FoodName)
	})

	t.Run("parse failure is reported", func(t *testing.T) {
		rec, tr := b.Trace(`{"foodName": }`)

		assert.Error(t, tr.Err)
		assert.ErrorContains(t, tr.Err, "parse payload")
		assert.True(t, tr.Fallback())
		assert.True(t, rec.IsFallback())
	})

	t.Run("fully stripped payload", func(t *testing.T) {
		_, tr := b.Trace("🍜🍜🍜")

		assert.ErrorIs(t, tr.Err, ErrNoPayload)
	})
}

func TestBuilder_NilSanitizerKeepsLatin(t *testing.T) {
	got := NewBuilder(nil).Build(`{"foodName":"Kimchi stew","calories":450,"nutrients":{"protein":20}}`)

	assert.Equal(t, "Kimchi stew", got.FoodName)
	assert.Equal(t, 450.0, got.Calories)
	assert.Equal(t, 20.0, got.Nutrients.Protein)

	// Hangul is not part of the default, so the name is stripped.
	got = NewBuilder(nil).Build(`{"foodName":"김치찌개","calories":450}`)
	assert.Equal(t, dieter.UnknownFoodName, got.FoodName)
	assert.Equal(t, 450.0, got.Calories)
}

func TestBuilder_AsciiOnlySanitizerManglesKeys(t *testing.T) {
	s, err := NewSanitizer()
	require.NoError(t, err)

	got := NewBuilder(s).Build(`{"foodName":"Kimchi","calories":100}`)
	assert.Equal(t, dieter.UnknownFoodName, got.FoodName)
	assert.Zero(t, got.Calories)
}

func TestBuilder_ConcurrentUse(t *testing.T) {
	b := newTestBuilder(t)
	raw := `{"foodName":"Kimchi stew","calories":"약 450kcal","nutrients":{"protein":20}}`

	done := make(chan dieter.NutritionRecord)
	for i := 0; i < 16; i++ {
		go func() { done <- b.Build(raw) }()
	}
	for i := 0; i < 16; i++ {
		rec := <-done
		assert.Equal(t, 450.0, rec.Calories)
	}
}

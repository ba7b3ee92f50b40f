package nutrition

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"dieter"
)

// ErrNoPayload is reported in a Trace when nothing parseable remained after sanitizing.
var ErrNoPayload = errors.New("no JSON payload in model response")

// Trace describes how a record was derived from raw model text.
type Trace struct {
	Payload   string `json:"payload"`
	Sanitized string `json:"sanitized"`
	Err       error  `json:"-"`
}

// Fallback reports whether the trace ended in the fallback record.
func (t Trace) Fallback() bool {
	return t.Err != nil
}

// Builder turns untrusted model text into a NutritionRecord. It holds no
// mutable state and is safe for concurrent use.
type Builder struct {
	sanitizer *Sanitizer
}

// NewBuilder creates a builder using s. A nil sanitizer keeps Latin, the
// smallest set under which record keys such as foodName survive.
func NewBuilder(s *Sanitizer) *Builder {
	if s == nil {
		s = latinSanitizer()
	}
	return &Builder{sanitizer: s}
}

func latinSanitizer() *Sanitizer {
	return &Sanitizer{
		scripts: []string{"Latin"},
		tables:  []*unicode.RangeTable{unicode.Latin},
	}
}

// Build returns a validated record, or the fallback record when the text
// cannot be read. It never panics.
func (b *Builder) Build(raw string) dieter.NutritionRecord {
	rec, _ := b.Trace(raw)
	return rec
}

// Trace is Build plus the intermediate payloads, for callers that log them.
func (b *Builder) Trace(raw string) (rec dieter.NutritionRecord, tr Trace) {
	defer func() {
		if r := recover(); r != nil {
			rec = dieter.FallbackRecord()
			tr.Err = fmt.Errorf("building record: %v", r)
		}
	}()

	tr.Payload = Extract(raw)
	tr.Sanitized = b.sanitizer.Sanitize(tr.Payload)
	if strings.TrimSpace(tr.Sanitized) == "" {
		tr.Err = ErrNoPayload
		return dieter.FallbackRecord(), tr
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(tr.Sanitized), &m); err != nil {
		tr.Err = fmt.Errorf("parse payload: %w", err)
		return dieter.FallbackRecord(), tr
	}
	if m == nil {
		// the payload was the literal null
		tr.Err = ErrNoPayload
		return dieter.FallbackRecord(), tr
	}

	return project(m), tr
}

// project reads the expected fields of an untyped payload, filling defaults.
func project(m map[string]any) dieter.NutritionRecord {
	nutrients, _ := m["nutrients"].(map[string]any)

	return dieter.NutritionRecord{
		FoodName: foodName(m["foodName"]),
		Calories: Coerce(m["calories"]),
		Nutrients: dieter.Nutrients{
			Protein:       Coerce(nutrients["protein"]),
			Fat:           Coerce(nutrients["fat"]),
			Carbohydrates: Coerce(nutrients["carbohydrates"]),
			Sugar:         Coerce(nutrients["sugar"]),
			Sodium:        Coerce(nutrients["sodium"]),
		},
	}
}

func foodName(v any) string {
	var name string
	switch t := v.(type) {
	case string:
		name = t
	case float64, bool:
		name = fmt.Sprint(t)
	}
	if name = strings.TrimSpace(name); name == "" {
		return dieter.UnknownFoodName
	}
	return name
}

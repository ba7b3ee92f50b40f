package intake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dieter/nutrition"
)

// Candidate is one ranked menu suggestion from the recommendation service.
type Candidate struct {
	Name     string  `json:"menuName"`
	Calories float64 `json:"calories"`
	Reason   string  `json:"reason"`
	Score    float64 `json:"score"`
}

// Recommendation is the single merged suggestion shown to the user.
type Recommendation struct {
	MenuName string  `json:"menuName"`
	Calories float64 `json:"calories"`
	Reason   string  `json:"reason"`
}

// NoSuitableMenu is returned when the service produced no usable candidate.
var NoSuitableMenu = Recommendation{
	MenuName: "No recommendation",
	Calories: 0,
	Reason:   "No menu matches the current conditions.",
}

var (
	nameKeys    = []string{"menuName", "recommend_menu", "name"}
	calorieKeys = []string{"calories", "calorie"}
	reasonKeys  = []string{"reason"}
	scoreKeys   = []string{"score"}
)

// DecodeCandidates reads a service reply that is either a single candidate
// object or an array of them. Unparseable bodies yield no candidates and
// entries without a name are dropped. Order is preserved.
func DecodeCandidates(body []byte) []Candidate {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	var items []map[string]any
	switch trimmed[0] {
	case '[':
		var raw []any
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil
		}
		for _, v := range raw {
			if m, ok := v.(map[string]any); ok {
				items = append(items, m)
			}
		}
	case '{':
		var m map[string]any
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil
		}
		items = append(items, m)
	default:
		return nil
	}

	cands := make([]Candidate, 0, len(items))
	for _, m := range items {
		name := stringField(m, nameKeys)
		if name == "" {
			continue
		}
		cands = append(cands, Candidate{
			Name:     name,
			Calories: nutrition.Coerce(firstField(m, calorieKeys)),
			Reason:   stringField(m, reasonKeys),
			Score:    nutrition.Coerce(firstField(m, scoreKeys)),
		})
	}
	return cands
}

// Summarize merges ranked candidates into one display record. The headline
// calories are those of the top candidate.
func Summarize(cands []Candidate) Recommendation {
	if len(cands) == 0 {
		return NoSuitableMenu
	}

	titles := make([]string, len(cands))
	reasons := make([]string, len(cands))
	for i, c := range cands {
		rank := i + 1
		titles[i] = fmt.Sprintf("%d. %s", rank, c.Name)
		reasons[i] = fmt.Sprintf("[%d] %s (%skcal)\n-> %s", rank, c.Name, formatCalories(c.Calories), c.Reason)
	}

	return Recommendation{
		MenuName: strings.Join(titles, " / "),
		Calories: cands[0].Calories,
		Reason:   strings.Join(reasons, "\n\n"),
	}
}

func formatCalories(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func firstField(m map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(m map[string]any, keys []string) string {
	switch v := firstField(m, keys).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64, bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

package nutrition

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// numberPattern matches the first unsigned decimal in free text such as "약 300kcal" or "12.5g 정도".
var numberPattern = regexp.MustCompile(`[0-9]+(\.[0-9]+)?`)

// Coerce extracts a non-negative, finite number from an arbitrary scalar.
// Numbers pass through unchanged; anything else is stringified and scanned
// for the first unsigned decimal. Nothing found yields 0.
func Coerce(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return clamp(t)
	case float32:
		return clamp(float64(t))
	case int:
		return clamp(float64(t))
	case int8:
		return clamp(float64(t))
	case int16:
		return clamp(float64(t))
	case int32:
		return clamp(float64(t))
	case int64:
		return clamp(float64(t))
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case uintptr:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return clamp(f)
		}
		return scan(t.String())
	case string:
		return scan(t)
	case []byte:
		return scan(string(t))
	case bool:
		return 0
	default:
		return scan(fmt.Sprint(t))
	}
}

func scan(s string) float64 {
	if s == "" {
		return 0
	}
	m := numberPattern.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return clamp(f)
}

// clamp maps negatives, NaN and infinities to 0.
func clamp(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

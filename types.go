package dieter

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type SlackClient interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

const (
	// UnknownFoodName is used when the model returned a record without a food name.
	UnknownFoodName = "Unknown food"

	// FallbackFoodName marks a record produced because the analysis could not be read.
	// Callers surface it as a "please retry" signal.
	FallbackFoodName = "Analysis delayed (please retry)"
)

// Entry sources recorded alongside each log entry.
const (
	SourceText  = "text"
	SourceImage = "image"
)

// NutritionRecord is the normalized result of one analysis attempt.
type NutritionRecord struct {
	FoodName  string    `json:"foodName"`
	Calories  float64   `json:"calories"`
	Nutrients Nutrients `json:"nutrients"`
}

// Nutrients holds the macro and micronutrient quantities of a record.
// Protein, fat, carbohydrates and sugar are grams; sodium is milligrams.
type Nutrients struct {
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbohydrates"`
	Sugar         float64 `json:"sugar"`
	Sodium        float64 `json:"sodium"`
}

// FallbackRecord returns the fixed record used when an analysis fails.
func FallbackRecord() NutritionRecord {
	return NutritionRecord{FoodName: FallbackFoodName}
}

// IsFallback reports whether the record is the fixed fallback record.
func (r NutritionRecord) IsFallback() bool {
	return r == FallbackRecord()
}

// IsValid checks the invariants every record handed to a caller must hold.
func (r NutritionRecord) IsValid() bool {
	if r.FoodName == "" {
		return false
	}

	values := []float64{
		r.Calories,
		r.Nutrients.Protein,
		r.Nutrients.Fat,
		r.Nutrients.Carbohydrates,
		r.Nutrients.Sugar,
		r.Nutrients.Sodium,
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}

	return true
}

// LogEntry is one stored record. The core never creates these itself;
// callers timestamp and persist them.
type LogEntry struct {
	ID       string          `json:"id"`
	Subject  string          `json:"subject"`
	LoggedAt time.Time       `json:"logged_at"`
	Source   string          `json:"source"`
	Record   NutritionRecord `json:"record"`
}

// NewLogEntry stamps a record with a fresh ID.
func NewLogEntry(subject, source string, record NutritionRecord, at time.Time) LogEntry {
	return LogEntry{
		ID:       uuid.NewString(),
		Subject:  subject,
		LoggedAt: at,
		Source:   source,
		Record:   record,
	}
}

// AnalysisRequest is what the caller forwards to the generative analysis service.
// The image is passed through opaquely.
type AnalysisRequest struct {
	Description string `json:"description,omitempty"`
	Image       []byte `json:"-"`
	MimeType    string `json:"mime_type,omitempty"`
}

// Source returns the log entry source tag for the request.
func (r AnalysisRequest) Source() string {
	if len(r.Image) > 0 {
		return SourceImage
	}
	return SourceText
}

package intake

import (
	"encoding/json"
)

// RecommendationRequest is handed to the external recommendation generator.
// It exists only for the duration of one outbound call.
type RecommendationRequest struct {
	Standard        Amounts
	Current         Amounts
	RecentFoodNames []string // most recent first
}

// userState is the flat feature vector the recommendation service reads.
type userState struct {
	RecCalories      float64 `json:"rec_cal"`
	RecCarbohydrates float64 `json:"rec_carb"`
	RecProtein       float64 `json:"rec_pro"`
	RecFat           float64 `json:"rec_fat"`
	RecSugar         float64 `json:"rec_sugar"`
	RecSodium        float64 `json:"rec_na"`
	CurCalories      float64 `json:"cur_cal"`
	CurCarbohydrates float64 `json:"cur_carb"`
	CurProtein       float64 `json:"cur_pro"`
	CurFat           float64 `json:"cur_fat"`
	CurSugar         float64 `json:"cur_sugar"`
	CurSodium        float64 `json:"cur_na"`
}

type wireRequest struct {
	UserState       userState `json:"user_state"`
	RecentFoodNames []string  `json:"recent_food_names"`
}

// MarshalJSON encodes the request in the recommendation service's wire shape.
func (r RecommendationRequest) MarshalJSON() ([]byte, error) {
	names := r.RecentFoodNames
	if names == nil {
		names = []string{}
	}
	return json.Marshal(wireRequest{
		UserState: userState{
			RecCalories:      r.Standard.Calories,
			RecCarbohydrates: r.Standard.Carbohydrates,
			RecProtein:       r.Standard.Protein,
			RecFat:           r.Standard.Fat,
			RecSugar:         r.Standard.Sugar,
			RecSodium:        r.Standard.Sodium,
			CurCalories:      r.Current.Calories,
			CurCarbohydrates: r.Current.Carbohydrates,
			CurProtein:       r.Current.Protein,
			CurFat:           r.Current.Fat,
			CurSugar:         r.Current.Sugar,
			CurSodium:        r.Current.Sodium,
		},
		RecentFoodNames: names,
	})
}

// Composer builds recommendation requests and normalizes the replies.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// Compose packs the day's totals and recent food names into a request.
func (c *Composer) Compose(totals DailyTotals, recentFoodNames []string) RecommendationRequest {
	names := make([]string, len(recentFoodNames))
	copy(names, recentFoodNames)

	return RecommendationRequest{
		Standard:        totals.RDA,
		Current:         totals.Intake,
		RecentFoodNames: names,
	}
}

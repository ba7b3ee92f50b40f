package analyzer

import (
	"fmt"
	"strings"

	"dieter"
)

// SystemPrompt instructs the model to answer with a single nutrition object.
const SystemPrompt = `You are a nutrition analyst.

GOAL:
Identify the food in the user's photo or description and estimate its calories and nutrients for one serving.

OUTPUT FORMAT:
Return ONLY a JSON object, no explanations and no text before or after it:
{
  "foodName": string,        // name of the dish, in the language the user wrote in
  "calories": number,        // kcal
  "nutrients": {
    "protein": number,       // grams
    "fat": number,           // grams
    "carbohydrates": number, // grams
    "sugar": number,         // grams
    "sodium": number         // milligrams
  }
}

RULES:
- Use plain numbers without units.
- If several foods are shown, report the dish as a whole.
- Do not use quotes, parentheses or other punctuation inside foodName.
- When a report tool is available, call it instead of writing the JSON as text.
`

// UserPrompt is the text part of the user turn for req.
func UserPrompt(req dieter.AnalysisRequest) string {
	desc := strings.TrimSpace(req.Description)
	switch {
	case len(req.Image) > 0 && desc != "":
		return fmt.Sprintf("Analyze the food in this photo. Additional notes: %s", desc)
	case len(req.Image) > 0:
		return "Analyze the food in this photo."
	default:
		return fmt.Sprintf("Analyze this food: %s", desc)
	}
}

// describe summarizes req for the attempt log without copying image bytes.
func describe(req dieter.AnalysisRequest) string {
	if len(req.Image) == 0 {
		return req.Description
	}
	s := fmt.Sprintf("image %s (%d bytes)", req.MimeType, len(req.Image))
	if req.Description != "" {
		s += ": " + req.Description
	}
	return s
}

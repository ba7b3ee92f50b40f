package dieter

import (
	"strings"
	"time"
)

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID,required"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=1024"`
	Temperature float32 `env:"TEMPERATURE,default=0.2"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

type PipelineConfig struct {
	// SanitizerScripts lists the unicode script names kept in food names,
	// separated by ';' (envdecode's list delimiter) or ','.
	SanitizerScripts    string `env:"SANITIZER_SCRIPTS,default=Latin;Hangul"`
	BaseOllamaEndpoint  string `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	RecommenderEndpoint string `env:"RECOMMENDER_ENDPOINT,default=http://127.0.0.1:5000/recommend"`
	RecordsPath         string `env:"RECORDS_PATH,default=artifacts/records.json"`
	BatchConcurrency    int    `env:"BATCH_CONCURRENCY,default=4"`
}

// Scripts splits SanitizerScripts into trimmed, non-empty names.
func (c PipelineConfig) Scripts() []string {
	var scripts []string
	fields := strings.FieldsFunc(c.SanitizerScripts, func(r rune) bool { return r == ';' || r == ',' })
	for _, s := range fields {
		if s = strings.TrimSpace(s); s != "" {
			scripts = append(scripts, s)
		}
	}
	return scripts
}

// RDAConfig carries the recommended daily allowances per gender.
// Defaults are the values the service shipped with.
type RDAConfig struct {
	MaleCalories      float64 `env:"RDA_MALE_CALORIES,default=2500"`
	MaleProtein       float64 `env:"RDA_MALE_PROTEIN,default=60"`
	MaleFat           float64 `env:"RDA_MALE_FAT,default=54"`
	MaleCarbohydrates float64 `env:"RDA_MALE_CARBOHYDRATES,default=324"`
	MaleSugar         float64 `env:"RDA_MALE_SUGAR,default=50"`
	MaleSodium        float64 `env:"RDA_MALE_SODIUM,default=2000"`

	FemaleCalories      float64 `env:"RDA_FEMALE_CALORIES,default=2000"`
	FemaleProtein       float64 `env:"RDA_FEMALE_PROTEIN,default=50"`
	FemaleFat           float64 `env:"RDA_FEMALE_FAT,default=45"`
	FemaleCarbohydrates float64 `env:"RDA_FEMALE_CARBOHYDRATES,default=270"`
	FemaleSugar         float64 `env:"RDA_FEMALE_SUGAR,default=50"`
	FemaleSodium        float64 `env:"RDA_FEMALE_SODIUM,default=2000"`
}

type RetryConfig struct {
	MaxTries        uint          `env:"RETRY_MAX_TRIES,default=3"`
	InitialInterval time.Duration `env:"RETRY_INITIAL_INTERVAL,default=500ms"`
	MaxElapsed      time.Duration `env:"RETRY_MAX_ELAPSED,default=10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=15s"`
}

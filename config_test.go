package dieter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineConfig_Scripts(t *testing.T) {
	tests := []struct {
		name     string
		scripts  string
		expected []string
	}{
		{name: "semicolons", scripts: "Latin;Hangul", expected: []string{"Latin", "Hangul"}},
		{name: "commas and spaces", scripts: " Latin , Han ", expected: []string{"Latin", "Han"}},
		{name: "empty entries", scripts: ";;Latin;", expected: []string{"Latin"}},
		{name: "none", scripts: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PipelineConfig{SanitizerScripts: tt.scripts}.Scripts())
		})
	}
}

package nutrition

import (
	"regexp"
	"strings"
)

// fencePattern matches the first code fence tagged json, JSON, jsonc, json5 and similar.
var fencePattern = regexp.MustCompile("(?is)```[ \\t]*json[a-z0-9]*[ \\t]*\\r?\\n?(.*?)```")

// Extract locates the JSON-shaped part of a model response:
//  1. the interior of the first json-tagged code fence;
//  2. else the span from the first '{' to the last '}';
//  3. else the raw text, so the parse failure is reported downstream.
//
// The result is not validated.
func Extract(raw string) string {
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		return raw[start : end+1]
	}

	return raw
}

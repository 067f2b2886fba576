// Package ai holds the OpenAI-backed analyzers: vendor risk scoring
// and document classification. Both rely on prompt engineering for
// JSON output and tolerate responses wrapped in markdown fences.
package ai

import (
	"encoding/json"
	"fmt"
)

// decodeJSONResponse parses a model response into out. Plain JSON is
// tried first; when the model wrapped the object in prose or ```json
// fences, the first balanced {...} block is extracted and parsed.
func decodeJSONResponse(content string, out any) error {
	if err := json.Unmarshal([]byte(content), out); err == nil {
		return nil
	}

	start := findJSONStart(content)
	if start < 0 {
		return fmt.Errorf("no JSON object in response")
	}
	end := findJSONEnd(content, start)
	if end <= start {
		return fmt.Errorf("unterminated JSON object in response")
	}
	if err := json.Unmarshal([]byte(content[start:end]), out); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}

// findJSONStart returns the index of the first '{' in content
func findJSONStart(content string) int {
	for i := 0; i < len(content); i++ {
		if content[i] == '{' {
			return i
		}
	}
	return -1
}

// findJSONEnd returns the index just past the brace matching the '{'
// at start, skipping braces inside string literals.
func findJSONEnd(content string, start int) int {
	if start < 0 || start >= len(content) || content[start] != '{' {
		return -1
	}

	braceCount := 0
	inString := false
	escapeNext := false

	for i := start; i < len(content); i++ {
		char := content[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if char == '\\' {
			escapeNext = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if char == '{' {
			braceCount++
		} else if char == '}' {
			braceCount--
			if braceCount == 0 {
				return i + 1
			}
		}
	}
	return -1
}

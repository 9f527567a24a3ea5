package ai

import (
	"encoding/json"
	"strings"
)

// ExtractObject finds and parses a JSON object in model output.
//
// The whole text is tried first. Otherwise the scan starts at the first '{' and
// counts braces until the depth returns to zero; only that span is parsed. Braces
// inside string literals are counted too. Text without a '{', a span that never
// closes (truncated output) or a span that fails to parse all yield false.
func ExtractObject(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	if obj, ok := parseObject(text); ok {
		return obj, true
	}

	start := strings.IndexByte(text, '{')
	if start == -1 {
		return nil, false
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
		}

		if depth == 0 {
			return parseObject(text[start : i+1])
		}
	}

	return nil, false
}

func parseObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

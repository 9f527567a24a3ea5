package logger

import (
	"strings"

	"go.uber.org/zap"
)

const ellipsis = "..."

// Preview logs at most limit runes of s under key. Longer text is cut and
// marked with an ellipsis, a non-positive limit logs nothing of it.
func Preview(key, s string, limit int) zap.Field {
	return zap.String(key, shorten(s, limit))
}

func shorten(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}

	seen := 0
	for i := range s {
		if seen == limit {
			return s[:i] + ellipsis
		}
		seen++
	}
	return s
}

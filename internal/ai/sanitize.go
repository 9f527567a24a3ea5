package ai

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

const (
	MinScore = 0
	MaxScore = 100

	maxTechnicalMatch  = 8
	maxRequirementGap  = 8
	maxStrategicAdvice = 6
)

// Sanitize coerces an untrusted parsed object into a well-formed Analysis.
// It never fails: wrong types fall back to zero values.
func Sanitize(o map[string]any) *Analysis {
	summary, _ := o["summary"].(string)

	return &Analysis{
		Score:           clampInt(coerceNumber(o["score"]), MinScore, MaxScore),
		Summary:         summary,
		TechnicalMatch:  stringList(o["technical_match"], maxTechnicalMatch),
		RequirementGap:  stringList(o["requirement_gap"], maxRequirementGap),
		StrategicAdvice: stringList(o["strategic_advice"], maxStrategicAdvice),
	}
}

func clampInt(n float64, lo, hi int) int {
	x := math.Trunc(n)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return lo
	}
	return int(math.Min(float64(hi), math.Max(float64(lo), x)))
}

// coerceNumber follows JavaScript Number() conversion for JSON values.
func coerceNumber(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return val
	case json.Number:
		return parseNumber(val.String())
	case int:
		return float64(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		return parseNumber(val)
	case []any:
		return parseNumber(joinList(val))
	default:
		return math.NaN()
	}
}

// parseNumber accepts the string forms JavaScript Number() accepts: decimal
// literals, signed Infinity and unsigned 0x, 0o and 0b integers.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, ok := new(big.Int).SetString(s[2:], base)
			if !ok || strings.ContainsAny(s[2:], "+-_") {
				return math.NaN()
			}
			f, _ := new(big.Float).SetInt(n).Float64()
			return f
		}
	}

	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return math.NaN()
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

func stringList(v any, limit int) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}

	if len(items) > limit {
		items = items[:limit]
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, coerceString(item))
	}
	return out
}

// coerceString follows JavaScript String() conversion for JSON values.
func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatNumber(val)
	case json.Number:
		return formatNumber(parseNumber(val.String()))
	case int:
		return strconv.Itoa(val)
	case []any:
		return joinList(val)
	default:
		return "[object Object]"
	}
}

// joinList renders an array the way Array.prototype.toString does, with
// null elements left empty.
func joinList(items []any) string {
	parts := make([]string, len(items))
	for i, item := range items {
		if item != nil {
			parts[i] = coerceString(item)
		}
	}
	return strings.Join(parts, ",")
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs < 1e21 && abs >= 1e-6 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	// 1e-07 becomes 1e-7 and 1e+21 stays as is.
	formatted := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(formatted, "e")
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + exp[:1] + digits
}

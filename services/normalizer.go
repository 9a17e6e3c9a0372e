package services

import (
	"math"
	"strconv"
	"strings"
)

// placeholderToken marks a "no activity" cell in ad exports. It means zero,
// not missing.
const placeholderToken = "-"

var currencyPrefixes = []string{"NT$", "US$", "$", "€", "£", "¥"}

// NormalizeValue coerces a raw cell into a number. Thousands separators and
// percent signs are stripped from text, the placeholder token becomes 0 and
// anything unparseable becomes NaN. Numbers pass through unchanged.
func NormalizeValue(v any) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		return normalizeText(x)
	default:
		return math.NaN()
	}
}

func normalizeText(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.TrimSpace(s)
	if s == placeholderToken {
		return 0
	}
	for _, p := range currencyPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
			break
		}
	}
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

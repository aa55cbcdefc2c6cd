// Package record holds raw provider payload rows as generic string-keyed
// maps and resolves fields by probing an ordered list of key spellings.
//
// Upstream providers are inconsistent about naming (before_price,
// beforePrice, BeforePrice, before-price), about number formatting
// ("1,234.5", "▲5", "--"), and about whether numbers arrive as JSON
// numbers or strings. Everything that touches a provider payload goes
// through this package so those quirks stop at the adapter boundary.
package record

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Record is one raw row from a provider response.
type Record map[string]any

// Variants expands a snake_case field name into the spellings providers use:
// snake_case, camelCase, PascalCase and hyphen-case, in that order.
func Variants(snake string) []string {
	parts := strings.Split(snake, "_")
	if len(parts) == 1 {
		pascal := upperFirst(snake)
		if pascal == snake {
			return []string{snake}
		}
		return []string{snake, pascal}
	}

	var camel, pascal strings.Builder
	for i, p := range parts {
		if i == 0 {
			camel.WriteString(p)
		} else {
			camel.WriteString(upperFirst(p))
		}
		pascal.WriteString(upperFirst(p))
	}
	return []string{snake, camel.String(), pascal.String(), strings.Join(parts, "-")}
}

// Keys expands every name with Variants and concatenates the results,
// preserving the order in which names were given.
func Keys(names ...string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, n := range names {
		for _, v := range Variants(n) {
			if !seen[v] {
				seen[v] = true
				keys = append(keys, v)
			}
		}
	}
	return keys
}

// Positive returns the first value among keys that parses to a finite, positive number.
func (r Record) Positive(keys ...string) (float64, bool) {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		if v, ok := ParseNumber(raw); ok && v > 0 {
			return v, true
		}
	}
	return 0, false
}

// Number returns the first value among keys that parses to a finite number of any sign.
func (r Record) Number(keys ...string) (float64, bool) {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		if v, ok := ParseNumber(raw); ok {
			return v, true
		}
	}
	return 0, false
}

// String returns the first non-blank string value among keys.
func (r Record) String(keys ...string) string {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok || raw == nil {
			continue
		}
		var s string
		switch v := raw.(type) {
		case string:
			s = v
		case json.Number:
			s = v.String()
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// ParseNumber converts a provider value into a finite float64.
// Strings are cleaned of thousands separators, arrow markers and sign
// prefixes used by exchange feeds; "--" and blanks are absent values.
func ParseNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		return parseString(v)
	default:
		return 0, false
	}
}

var numberCleaner = strings.NewReplacer(",", "", "▲", "", "▼", "-", "+", "", " ", "")

func parseString(s string) (float64, bool) {
	cleaned := numberCleaner.Replace(strings.TrimSpace(s))
	// TWSE prefixes annotated change values with "X" (e.g. "X0.00").
	cleaned = strings.TrimLeftFunc(cleaned, func(r rune) bool {
		return unicode.IsLetter(r)
	})
	if cleaned == "" || cleaned == "--" || cleaned == "-" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

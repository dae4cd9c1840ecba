package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/itemgrid/fieldflow/types"
)

// splitExpected splits a comma-separated literal list, trimming whitespace
// and dropping empty entries.
func splitExpected(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBoolLiteral follows the source semantics: "true" (any casing) or any
// positive integer string means true, everything else false.
func parseBoolLiteral(s string) bool {
	if strings.EqualFold(s, "true") {
		return true
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return true
	}
	return false
}

var dateLayouts = []string{
	types.DateFormat,
	"2006-01-02",
	time.RFC3339,
}

// parseDateLiteral tries the supported date layouts in order.
func parseDateLiteral(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date literal %q", s)
}

// coerceNumbers parses each expected literal as a float; unparseable
// literals are dropped so a single bad entry degrades only itself.
func coerceNumbers(literals []string) []float64 {
	out := make([]float64, 0, len(literals))
	for _, l := range literals {
		if f, err := cast.ToFloat64E(l); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// coerceDates parses each expected literal as a date, dropping failures.
func coerceDates(literals []string) []time.Time {
	out := make([]time.Time, 0, len(literals))
	for _, l := range literals {
		if t, err := parseDateLiteral(l); err == nil {
			out = append(out, t)
		}
	}
	return out
}

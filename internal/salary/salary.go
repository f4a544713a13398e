// Package salary extracts annual salary bounds from free-form posting text.
// Extraction is best-effort: text without a recognizable salary yields no
// bounds, and malformed digit groups are swallowed rather than surfaced.
package salary

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// "$125K - $150K", "$150,000 - $350K"
	rangePattern = regexp.MustCompile(`\$([\d,]+)(?:\.(\d{2}))?\s*(K)?\s*-\s*\$([\d,]+)(?:\.(\d{2}))?(K)?`)
	// "$150K"
	singleKPattern = regexp.MustCompile(`\$([\d.]+)K`)
	// "$89.04 to $99.04/hour"
	hourlyPattern = regexp.MustCompile(`\$([\d.]+)\s*to\s*\$([\d.]+)/hour`)
	// "$150,000.00" or "$150,000"
	dollarPattern = regexp.MustCompile(`\$([\d,]+)(?:\.(\d{2}))?`)
)

const (
	hoursPerWeek = 40
	weeksPerYear = 52
)

// Parse returns the (low, high) annual salary bounds found in text, or
// (nil, nil) when no pattern matches. Patterns are mutually exclusive and
// tried in priority order: explicit range, single thousands figure, hourly
// range, single dollar figure. Any bound below 100 is treated as expressed in
// thousands. A literal 401K retirement-plan token never counts as a salary.
func Parse(text string) (low, high *float64) {
	if lo, hi, ok := parseRange(text); ok {
		return normalize(lo), normalize(hi)
	}

	if m := singleKPattern.FindStringSubmatch(text); m != nil {
		if v, err := parseAmount(m[1], ""); err == nil {
			v *= 1000
			return normalize(v), normalize(v)
		}
		return nil, nil
	}

	if m := hourlyPattern.FindStringSubmatch(text); m != nil {
		lo, errLo := strconv.ParseFloat(m[1], 64)
		hi, errHi := strconv.ParseFloat(m[2], 64)
		if errLo != nil || errHi != nil {
			return nil, nil
		}
		lo *= hoursPerWeek * weeksPerYear
		hi *= hoursPerWeek * weeksPerYear
		return normalize(lo), normalize(hi)
	}

	if m := dollarPattern.FindStringSubmatch(text); m != nil {
		if v, err := parseAmount(m[1], m[2]); err == nil {
			return normalize(v), normalize(v)
		}
	}

	return nil, nil
}

// parseRange finds the first salary range whose sides are genuine amounts.
// Matches where either side is the literal 401K token are skipped, the
// retirement-plan false positive.
func parseRange(text string) (lo, hi float64, ok bool) {
	for _, m := range rangePattern.FindAllStringSubmatch(text, -1) {
		if (m[1] == "401" && m[3] == "K") || (m[4] == "401" && m[6] == "K") {
			continue
		}

		lo, errLo := parseAmount(m[1], m[2])
		hi, errHi := parseAmount(m[4], m[5])
		if errLo != nil || errHi != nil {
			continue
		}

		if m[3] == "K" {
			lo *= 1000
		}
		if m[6] == "K" {
			hi *= 1000
		}
		return lo, hi, true
	}

	return 0, 0, false
}

func parseAmount(digits, cents string) (float64, error) {
	s := strings.ReplaceAll(digits, ",", "")
	if cents != "" {
		s += "." + cents
	}
	return strconv.ParseFloat(s, 64)
}

// Bounds below 100 are shorthand for thousands ("$85" meaning $85K).
func normalize(v float64) *float64 {
	if v < 100 {
		v *= 1000
	}
	return &v
}

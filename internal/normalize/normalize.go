// Package normalize converts the free-text numeric, ratio and date fields
// found in disclosure extractions into typed values. Every function is pure
// and total: bad input degrades to a zero value instead of returning an
// error, because a partially normalized record is still worth storing.
package normalize

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// rankEpoch anchors edge ranks. A rank is the number of days between the
// report date and this epoch, so later reports always sort higher and an
// unknown date (rank 0) sorts below every post-epoch observation.
var rankEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

var numberPattern = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)

// magnitudes maps Chinese order-of-magnitude words to their multiplier.
var magnitudes = []struct {
	word   string
	factor float64
}{
	{"亿", 1e8},
	{"万", 1e4},
	{"千", 1e3},
}

// knownUnits is the closed set of unit tokens we preserve. Anything else
// becomes the empty unit rather than poisoning the record.
var knownUnits = map[string]struct{}{
	"元":   {},
	"人民币": {},
	"美元":  {},
	"港元":  {},
	"港币":  {},
	"欧元":  {},
	"日元":  {},
	"股":   {},
	"份":   {},
	"人":   {},
}

// ParseRatio parses a ratio expressed as a percentage ("35.67%", "35.67")
// or a fraction ("3/20") and returns a value in [0,1]. Percent forms are
// divided by 100. Out-of-range results are rejected to 0 so a mis-scaled
// extraction never enters the graph as a ratio above 100%.
func ParseRatio(s string) float64 {
	s = strings.TrimSpace(fold(s))
	if s == "" {
		return 0
	}

	if i := strings.IndexByte(s, '/'); i > 0 {
		num, errN := strconv.ParseFloat(strings.TrimSpace(s[:i]), 64)
		den, errD := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64)
		if errN != nil || errD != nil || den == 0 {
			slog.Warn("unparseable ratio", "value", s)
			return 0
		}
		return clampRatio(num/den, s)
	}

	cleaned := strings.ReplaceAll(strings.TrimSuffix(s, "%"), ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		slog.Warn("unparseable ratio", "value", s)
		return 0
	}
	return clampRatio(v/100, s)
}

func clampRatio(v float64, orig string) float64 {
	if v < 0 || v > 1 {
		slog.Warn("ratio out of range, dropping", "value", orig)
		return 0
	}
	return v
}

// ParseAmount parses a locale-formatted amount such as "1,000万元" into its
// numeric value and normalized unit: (10000000, "元"). Magnitude words
// (万, 亿, 千) scale the number; a unit token outside the known table
// yields the empty unit.
func ParseAmount(s string) (float64, string) {
	s = strings.TrimSpace(fold(s))
	if s == "" {
		return 0, ""
	}
	s = strings.ReplaceAll(s, ",", "")

	match := numberPattern.FindStringIndex(s)
	if match == nil {
		slog.Warn("unparseable amount", "value", s)
		return 0, ""
	}
	v, err := strconv.ParseFloat(s[match[0]:match[1]], 64)
	if err != nil {
		slog.Warn("unparseable amount", "value", s)
		return 0, ""
	}

	rest := strings.TrimSpace(s[match[1]:])
	for _, m := range magnitudes {
		if strings.HasPrefix(rest, m.word) {
			v *= m.factor
			rest = strings.TrimPrefix(rest, m.word)
			break
		}
	}

	unit := strings.TrimSpace(rest)
	if _, ok := knownUnits[unit]; !ok {
		unit = ""
	}
	return v, unit
}

// ParseInteger parses an integer that may carry thousand separators in
// either half-width or full-width form. Invalid or empty input returns 0.
func ParseInteger(s string) int64 {
	s = fold(s)
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '-' && i == 0 {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" || digits == "-" {
		return 0
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// Overflow on absurdly long digit runs.
		slog.Warn("integer overflow", "value", s)
		return 0
	}
	return v
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"20060102",
	"2006-01",
	"2006-1",
	"2006/01",
	"2006/1",
	"2006",
}

// DateToRank maps a report date to its edge rank: the day count from
// 2000-01-01. Year-month and year-only dates snap to the first day of the
// period. Empty or unparseable dates rank 0, the least authoritative.
func DateToRank(s string) int64 {
	t, ok := parseDate(s)
	if !ok {
		return 0
	}
	return int64(t.Sub(rankEpoch).Hours() / 24)
}

// FormatTimestamp renders a report date as an ISO-8601 datetime for the
// store's queryable timestamp property. This is deliberately separate from
// DateToRank: the store records both a sortable rank and a readable
// timestamp. Unparseable input renders as the empty string.
func FormatTimestamp(s string) string {
	t, ok := parseDate(s)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02T15:04:05")
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(fold(s))
	s = strings.ReplaceAll(s, `"`, "")
	if s == "" {
		return time.Time{}, false
	}

	// 2024年12月31日 -> 20241231, 2024年12月 -> 2024-12
	if strings.ContainsAny(s, "年月日") {
		s = strings.NewReplacer("年", "-", "月", "-", "日", "").Replace(s)
		s = strings.TrimSuffix(s, "-")
	}

	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, true
		}
	}
	slog.Warn("unparseable date", "value", s)
	return time.Time{}, false
}

// fold narrows full-width ASCII variants (digits, separators, percent
// signs) to their half-width forms before any parsing.
func fold(s string) string {
	return width.Narrow.String(s)
}

// Package isodate normalizes the date tokens accepted from callers and
// upstream providers into ISO calendar days (YYYY-MM-DD) and provides the
// day arithmetic used for span partitioning.
//
// All values are calendar days anchored at midnight UTC. Supported input
// tokens:
//   - ISO:        2024-07-10
//   - Slashed:    2024/7/10
//   - ROC (民國):  113/07/10 (year + 1911)
//   - Compact:    20240710
package isodate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical date layout used across the engine.
const Layout = "2006-01-02"

// Day is the duration of one calendar day.
const Day = 24 * time.Hour

var (
	isoPattern     = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	slashPattern   = regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`)
	rocPattern     = regexp.MustCompile(`^\d{2,3}/\d{1,2}/\d{1,2}$`)
	compactPattern = regexp.MustCompile(`^\d{8}$`)
)

// Normalize converts a supported date token into YYYY-MM-DD.
// Returns false when the token is empty, unrecognized, or not a real calendar day.
func Normalize(token string) (string, bool) {
	t, ok := Parse(token)
	if !ok {
		return "", false
	}
	return Format(t), true
}

// Parse converts a supported date token into midnight UTC of that day.
func Parse(token string) (time.Time, bool) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return time.Time{}, false
	}

	var y, m, d int
	switch {
	case isoPattern.MatchString(trimmed):
		y, m, d = splitInts(trimmed, "-")
	case slashPattern.MatchString(trimmed):
		y, m, d = splitInts(trimmed, "/")
	case rocPattern.MatchString(trimmed):
		y, m, d = splitInts(trimmed, "/")
		y += 1911
	case compactPattern.MatchString(trimmed):
		y, _ = strconv.Atoi(trimmed[:4])
		m, _ = strconv.Atoi(trimmed[4:6])
		d, _ = strconv.Atoi(trimmed[6:])
	default:
		return time.Time{}, false
	}

	return fromParts(y, m, d)
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(token string) time.Time {
	t, ok := Parse(token)
	if !ok {
		panic(fmt.Sprintf("isodate: invalid date %q", token))
	}
	return t
}

// Format renders t as YYYY-MM-DD in UTC.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Truncate drops the time-of-day component, keeping the UTC calendar day.
func Truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current UTC calendar day.
func Today() time.Time {
	return Truncate(time.Now())
}

// AddDays shifts t by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysInclusive counts the calendar days in [start, end]. Returns 0 when start is after end.
func DaysInclusive(start, end time.Time) int {
	s, e := Truncate(start), Truncate(end)
	if s.After(e) {
		return 0
	}
	return int(e.Sub(s)/Day) + 1
}

// MonthStarts enumerates the first day of every month touched by [start, end].
func MonthStarts(start, end time.Time) []time.Time {
	s, e := Truncate(start), Truncate(end)
	if s.After(e) {
		return nil
	}
	cursor := time.Date(s.Year(), s.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(e.Year(), e.Month(), 1, 0, 0, 0, 0, time.UTC)

	var months []time.Time
	for !cursor.After(last) {
		months = append(months, cursor)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return months
}

// FromROC converts a ROC calendar token (113/07/10) into YYYY-MM-DD.
func FromROC(token string) (string, bool) {
	trimmed := strings.TrimSpace(token)
	if !rocPattern.MatchString(trimmed) {
		return "", false
	}
	return Normalize(trimmed)
}

func splitInts(s, sep string) (int, int, int) {
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return 0, 0, 0
	}
	a, _ := strconv.Atoi(parts[0])
	b, _ := strconv.Atoi(parts[1])
	c, _ := strconv.Atoi(parts[2])
	return a, b, c
}

func fromParts(y, m, d int) (time.Time, bool) {
	if y <= 0 || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 → Mar 2); reject those.
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

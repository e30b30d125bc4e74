// Package dates normalizes the timestamp strings community boards print in
// their post lists. Boards abbreviate aggressively: recent posts show only a
// clock time, older ones a month/day, and archives a two-digit year.
package dates

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

type matcher struct {
	re    *regexp.Regexp
	parse func(m []string, now time.Time) time.Time
}

// matchers are tried in order; the first hit wins.
var matchers = []matcher{
	{
		// "26.02.02", "26/02/02": two-digit year, 2000-relative
		re: regexp.MustCompile(`^(\d{2})[-./](\d{2})[-./](\d{2})$`),
		parse: func(m []string, _ time.Time) time.Time {
			return time.Date(2000+atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), 0, 0, 0, 0, time.Local)
		},
	},
	{
		// "2026-02-01 12:34" or "2026-02-01 12:34:56"
		re: regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})\s+(\d{2}):(\d{2})`),
		parse: func(m []string, _ time.Time) time.Time {
			return time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), atoi(m[4]), atoi(m[5]), 0, 0, time.Local)
		},
	},
	{
		// "2026.02.01 12:34"
		re: regexp.MustCompile(`^(\d{4})\.(\d{2})\.(\d{2})\s+(\d{2}):(\d{2})`),
		parse: func(m []string, _ time.Time) time.Time {
			return time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), atoi(m[4]), atoi(m[5]), 0, 0, time.Local)
		},
	},
	{
		// "2026-02-01", "2026.02.01", "2026/02/01"
		re: regexp.MustCompile(`^(\d{4})[-./](\d{2})[-./](\d{2})$`),
		parse: func(m []string, _ time.Time) time.Time {
			return time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), 0, 0, 0, 0, time.Local)
		},
	},
	{
		// "02.01", "02-01", "02/01": month/day, year assumed current.
		// Near a year boundary this can attribute December posts to the
		// new year; boards give us nothing better to go on.
		re: regexp.MustCompile(`^(\d{2})[-./](\d{2})$`),
		parse: func(m []string, now time.Time) time.Time {
			return time.Date(now.Year(), time.Month(atoi(m[1])), atoi(m[2]), 0, 0, 0, 0, time.Local)
		},
	},
	{
		// "12:34" or "12:34:56": today
		re: regexp.MustCompile(`^(\d{2}):(\d{2})(:\d{2})?$`),
		parse: func(m []string, now time.Time) time.Time {
			return time.Date(now.Year(), now.Month(), now.Day(), atoi(m[1]), atoi(m[2]), 0, 0, time.Local)
		},
	},
}

// Parse converts a raw board timestamp into a time. The second return value
// reports whether any matcher (or the generic fallback) understood the input.
func Parse(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, m := range matchers {
		if groups := m.re.FindStringSubmatch(raw); groups != nil {
			t := m.parse(groups, now)
			if t.IsZero() {
				return time.Time{}, false
			}
			return t, true
		}
	}

	// Last resort: generic layout detection for feeds and odd boards.
	if t, err := dateparse.ParseLocal(raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

package kad

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	msDate = regexp.MustCompile(`^/Date\((-?\d+)(?:[+-]\d{4})?\)/$`)
	ruDate = regexp.MustCompile(`(\d{2})\.(\d{2})\.(\d{4})`)
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006",
}

// ParseDate understands the date encodings the site uses. Unparseable
// input yields nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if m := msDate.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil
		}
		t := time.UnixMilli(ms).UTC()
		return &t
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// FindRuDate returns the first valid dd.mm.yyyy date in s.
func FindRuDate(s string) *time.Time {
	for _, m := range ruDate.FindAllString(s, -1) {
		if t, err := time.Parse("02.01.2006", m); err == nil {
			return &t
		}
	}
	return nil
}

// FormatDate renders d in the search filter format.
func FormatDate(d time.Time) string {
	return d.UTC().Format("2006-01-02T00:00:00")
}

package helpers

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dayFirstRe = regexp.MustCompile(`^(\d{1,2})[.:](\d{1,2})[.:](\d{4})(?:[ T](\d{1,2}):(\d{2}))?$`)

var isoDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseExamDate parses DD.MM.YYYY[ HH:MM] (dots or colons as separators) and
// falls back to YYYY-MM-DD[ HH:MM] or full ISO 8601. A bare 10-character date
// is midnight. Inputs without an offset are read in loc.
func ParseExamDate(input string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}

	if m := dayFirstRe.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		hour, minute := 0, 0
		if m[4] != "" {
			hour, _ = strconv.Atoi(m[4])
			minute, _ = strconv.Atoi(m[5])
		}
		if month < 1 || month > 12 || hour > 23 || minute > 59 {
			return time.Time{}, false
		}
		t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
		// time.Date normalizes 31.02 into March; reject that.
		if t.Day() != day || int(t.Month()) != month {
			return time.Time{}, false
		}
		return t, true
	}

	var alt string
	if len(s) == 10 {
		alt = s + "T00:00:00"
	} else {
		alt = strings.Replace(s, " ", "T", 1)
	}
	for _, layout := range isoDateLayouts {
		if t, err := time.ParseInLocation(layout, alt, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

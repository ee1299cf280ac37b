package registration

import (
	"fmt"
	"strings"
	"time"
)

// EncodeExamTime renders the exam time as stored in the exam_datetime setting.
func EncodeExamTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// DecodeExamTime parses the exam_datetime setting. Fractional seconds, as
// written by older data files, are accepted.
func DecodeExamTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid exam time %q: %w", v, err)
	}
	return t.UTC(), nil
}

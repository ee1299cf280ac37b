package logger

import (
	"log/slog"
	"strings"
)

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

// validOutcome accepts the two outcomes handler summaries produce; anything
// else is dropped from the line.
func validOutcome(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	return v, v == "ok" || v == "fail"
}

// defaultKeyOrder puts correlation fields first, then the exam fields the
// domain packages log, then transport details.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"cb_key",
	"outcome",
	"duration_ms",
	"registration_id",
	"action",
	"ids",
	"count",
	"sent",
	"failed",
	"removed",
	"missing",
	"exam_at",
	"step",
	"messages",
	"edits",
	"documents",
	"answers",
	"kb",
	"endpoint",
	"err",
	"err_kind",
	"attempts",
	"backoff_ms",
	"mode",
	"driver",
	"db",
	"path",
}

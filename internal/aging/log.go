// Package aging derives human-readable duration strings from a part
// record's append-only updates log. The persisted log format is
// "\n[YYYY-MM-DD HH:MM] actor: action" with the newest entries appended at
// the end; that exact shape is a backward-compatibility contract, so the
// package parses it into structured events and only renders it back at the
// persistence boundary.
package aging

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TimeLayout is the bracketed timestamp format used by log entries.
const TimeLayout = "2006-01-02 15:04"

var entryRe = regexp.MustCompile(`\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2})\] (.*?): (.*)`)

// Entry is one parsed log event.
type Entry struct {
	Timestamp time.Time
	Actor     string
	Action    string
}

// ParseLog extracts all well-formed entries from the raw log text, oldest
// first. Malformed lines are skipped; the function never fails.
func ParseLog(logText string) []Entry {
	if logText == "" {
		return nil
	}
	matches := entryRe.FindAllStringSubmatch(logText, -1)
	entries := make([]Entry, 0, len(matches))
	for _, m := range matches {
		ts, err := time.Parse(TimeLayout, m[1])
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Timestamp: ts, Actor: m[2], Action: m[3]})
	}
	return entries
}

// Line renders a single log entry in the persisted format, leading newline
// included.
func Line(ts time.Time, actor, action string) string {
	return fmt.Sprintf("\n[%s] %s: %s", ts.Format(TimeLayout), actor, action)
}

// Append returns the log with one more entry at the end.
func Append(logText string, ts time.Time, actor, action string) string {
	return logText + Line(ts, actor, action)
}

var sentinelDates = map[string]struct{}{
	"":     {},
	"none": {},
	"nat":  {},
}

// ParseOverrideDate interprets a manually entered override date, rejecting
// the empty/"none"/"nat" sentinels that spreadsheet round trips leave
// behind. Only the date part of "YYYY-MM-DD[ HH:MM[:SS]]" inputs is kept.
func ParseOverrideDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if _, bad := sentinelDates[strings.ToLower(s)]; bad {
		return time.Time{}, false
	}
	datePart := strings.SplitN(s, " ", 2)[0]
	t, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

package aging

import (
	"fmt"
	"strings"
	"time"

	"github.com/dealerops/partstrail-backend/pkg/enums"
)

// Overrides carries the manual dates that take precedence over log-derived
// aging. Nil fields fall through to the next priority source.
type Overrides struct {
	CustomStockDate *time.Time
	BackOrderDate   *time.Time
	ReceivedDate    *time.Time
}

// Compute returns the aging string for a record: "IS N days" for in-stock
// statuses, "B.O. N days" for back orders, "" when nothing can be derived.
// It never fails; unparseable inputs fall back to the next source or the
// zero result.
func Compute(logText string, status enums.ItemStatus, o Overrides, now time.Time) string {
	switch {
	case status.IsReceived():
		return fmt.Sprintf("IS %d days", DaysInStock(logText, o, now))
	case status == enums.ItemStatusBackOrder:
		start, ok := backOrderStart(logText, o)
		if !ok {
			return ""
		}
		return fmt.Sprintf("B.O. %d days", daysSince(start, now))
	default:
		return ""
	}
}

// DaysInStock counts whole days since arrival for Received / Partially
// Received records. Priority: custom stock date override, precise receipt
// timestamp, most recent log entry whose action mentions a receipt, zero.
func DaysInStock(logText string, o Overrides, now time.Time) int {
	if o.CustomStockDate != nil {
		return daysSince(*o.CustomStockDate, now)
	}
	if o.ReceivedDate != nil {
		return daysSince(*o.ReceivedDate, now)
	}
	entries := ParseLog(logText)
	for i := len(entries) - 1; i >= 0; i-- {
		// Matches both "Received" and "received".
		if strings.Contains(entries[i].Action, "eceived") {
			return daysSince(entries[i].Timestamp, now)
		}
	}
	return 0
}

// DaysOnBackOrder counts whole days since the back order began, or zero
// when no start can be derived.
func DaysOnBackOrder(logText string, o Overrides, now time.Time) int {
	start, ok := backOrderStart(logText, o)
	if !ok {
		return 0
	}
	return daysSince(start, now)
}

// backOrderStart resolves when the back order began: the manual override if
// set, else the earliest log entry (the original upload).
func backOrderStart(logText string, o Overrides) (time.Time, bool) {
	if o.BackOrderDate != nil {
		return *o.BackOrderDate, true
	}
	entries := ParseLog(logText)
	if len(entries) == 0 {
		return time.Time{}, false
	}
	return entries[0].Timestamp, true
}

// daysSince counts whole days between the start date and now, clamped at
// zero. Starts are truncated to their date so that an 09:00 upload still
// ages a full day at the next midnight boundary.
func daysSince(start, now time.Time) int {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	nowUTC := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), 0, 0, time.UTC)
	days := int(nowUTC.Sub(startDay).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

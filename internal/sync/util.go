package sync

import (
	"log"
	"time"
)

func logPrintf(format string, args ...any) {
	log.Printf(format, args...)
}

func timeNow() time.Time {
	return time.Now()
}

// svnTimeOrNow parses an SVN log entry's ISO-8601 date, falling back
// to the current time if it doesn't parse — the sync_records ledger
// is diagnostic, not authoritative, so a bad timestamp shouldn't block
// the replay it's recording.
func svnTimeOrNow(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.000000Z", s); err == nil {
		return t
	}
	return time.Now()
}

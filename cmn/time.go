package cmn

import "time"

// TimestampFormat is the ISO-8601 UTC-to-the-second format used for every
// create/update/claim timestamp persisted by the store.
const TimestampFormat = "2006-01-02T15:04:05"

// Now returns the current time formatted per TimestampFormat.
func Now() string {
	return time.Now().UTC().Format(TimestampFormat)
}

// ParseTimestamp parses a timestamp previously produced by Now.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampFormat, s, time.UTC)
}

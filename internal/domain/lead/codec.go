package lead

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// All record fields are string-typed at rest (the CSV store and the postgres
// store share one flat layout). These helpers are the single place where the
// typed in-memory representation meets that format.

// TimestampLayout is how last_agent_msg_ts is serialized at rest.
const TimestampLayout = time.RFC3339Nano

// FormatTimestamp serializes an optional timestamp; an invalid NullTime
// becomes the empty string.
func FormatTimestamp(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored timestamp. The empty string maps to an
// invalid NullTime; anything unparsable is an error the caller must treat as
// "skip, don't crash".
func ParseTimestamp(s string) (sql.NullTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullTime{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return sql.NullTime{Time: t.UTC(), Valid: true}, nil
		}
	}
	return sql.NullTime{}, fmt.Errorf("unparsable timestamp %q", s)
}

// FormatFlag serializes the follow-up flag.
func FormatFlag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ParseFlag parses a stored flag defensively: anything that is not a
// recognized true value counts as false.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes":
		return true
	}
	return false
}

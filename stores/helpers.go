package stores

import (
	"time"

	"github.com/oarkflow/date"
)

// parseFlexibleTime handles the many textual timestamp shapes drivers return,
// sqlite in particular.
func parseFlexibleTime(s string) (time.Time, error) {
	return date.Parse(s)
}

// scanTime normalizes a scanned timestamp column. Drivers variously hand back
// time.Time, string or []byte.
func scanTime(raw any) time.Time {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		if t, err := parseFlexibleTime(v); err == nil {
			return t
		}
	case []byte:
		if t, err := parseFlexibleTime(string(v)); err == nil {
			return t
		}
	}
	return time.Time{}
}

package store

import (
	"fmt"
	"time"
)

// Rows written by CURRENT_TIMESTAMP use the first layout; rows this package
// writes carry milliseconds so that sessions in the same second keep their order.
const (
	timestampLayout      = "2006-01-02 15:04:05"
	timestampWriteLayout = "2006-01-02 15:04:05.000"
)

var timestampLayouts = []string{
	timestampLayout,
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampWriteLayout)
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

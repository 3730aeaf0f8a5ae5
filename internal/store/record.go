package store

import (
	"fmt"
	"time"
)

// Level is the severity tag carried by every on-disk record.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

const timeLayout = "2006-01-02 15:04:05"

// formatRecord renders a single log line in the canonical on-disk format:
//
//	[<level>] timestamp: <YYYY-MM-DD HH:MM:SS>, message: <payload>\n
//
// The timestamp is captured by the caller (inside the append critical
// section) so that concurrent appends still produce a total order.
func formatRecord(level Level, message string, at time.Time) string {
	return fmt.Sprintf("[%s] timestamp: %s, message: %s\n", level, at.Format(timeLayout), message)
}

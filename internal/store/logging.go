package store

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// logFallback records a disk-subsystem failure. It always writes to
// stderr and additionally emits a structured zap entry when a global
// logger has been configured. It never returns an error and never
// panics, so a broken logging pipeline can't turn a swallowed I/O error
// into a crash.
func logFallback(level, msg string) {
	fmt.Fprintf(os.Stderr, "[%s] store: %s\n", level, msg)

	logger := zap.L()
	if logger == nil {
		return
	}
	named := logger.Named("store")
	switch level {
	case "error":
		named.Error(msg)
	default:
		named.Info(msg)
	}
}

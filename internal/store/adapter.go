package store

// StringLog adapts a *SegmentedLog to the plain-string ActivityLog
// interfaces declared by internal/topic and internal/protocol. Those
// packages take level as a bare string so they don't need to import
// store's Level type; SegmentedLog.Append takes the stronger Level type
// for its own internal and test callers, so the two don't satisfy each
// other directly.
type StringLog struct {
	*SegmentedLog
}

// Append implements the two-string ActivityLog interface by converting
// level to store.Level before delegating.
func (s StringLog) Append(level, message string) {
	s.SegmentedLog.Append(Level(level), message)
}

// internal/model/logs.go
package model

import "time"

// LogEntry represents a single log line from a container
type LogEntry struct {
	Timestamp time.Time
	Message   string
	Stream    string // "stdout" or "stderr"
}

// Messages returns the message text of each entry, preserving order
func Messages(entries []LogEntry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Message)
	}
	return lines
}

// ActivitySignal is the log-derived estimate of player presence for one tick
type ActivitySignal struct {
	RecentActivity bool
	EstimatedCount int
	// FetchFailed is set when the log tail could not be obtained. RecentActivity
	// is forced true in that case.
	FetchFailed bool
}

// Detected reports whether the signal is strong enough to count as presence
func (a ActivitySignal) Detected() bool {
	return a.RecentActivity || a.EstimatedCount > 0
}

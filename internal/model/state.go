package model

import "time"

// MonitoringState is the persisted cross-tick record for one server.
// Version is owned by the state store and used for conditional writes.
type MonitoringState struct {
	LastPlayersSeenAt        time.Time `json:"last_players_seen"`
	ConsecutiveEmptyChecks   int       `json:"consecutive_empty_checks"`
	ConsecutiveProbeFailures int       `json:"consecutive_failures"`
	LastCheckTime            time.Time `json:"last_check_time"`

	Version string `json:"-"`
}

// NewMonitoringState is the lazily created first record
func NewMonitoringState(now time.Time) MonitoringState {
	return MonitoringState{LastPlayersSeenAt: now}
}

// Reset clears both counters and marks now as the last time players were seen.
// Used after a shutdown, an aborted shutdown, and a manual start.
func (s *MonitoringState) Reset(now time.Time) {
	s.ConsecutiveEmptyChecks = 0
	s.ConsecutiveProbeFailures = 0
	s.LastPlayersSeenAt = now
}

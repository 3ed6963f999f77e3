package model

import "time"

// EventKind classifies a notification emitted by the monitor
type EventKind string

const (
	EventShutdown        EventKind = "shutdown"
	EventShutdownFailed  EventKind = "shutdown_failed"
	EventShutdownAborted EventKind = "shutdown_aborted"
)

// Event is published when the monitor acts on (or backs off from) a shutdown
type Event struct {
	Kind        EventKind `json:"kind"`
	Container   string    `json:"container"`
	At          time.Time `json:"at"`
	EmptyChecks int       `json:"empty_checks"`
	Reason      string    `json:"reason,omitempty"`
}

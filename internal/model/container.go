package model

import "time"

// ContainerStatus is the coarse lifecycle state of the game server container
type ContainerStatus int

const (
	StatusUnknown ContainerStatus = iota
	StatusRunning
	StatusStopped
	StatusTransitioning
)

func (s ContainerStatus) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	case StatusTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// ContainerInfo is a one-tick snapshot of the container as reported by the
// lifecycle controller. IPAddress is empty while the network is still being
// provisioned.
type ContainerInfo struct {
	Name      string
	Status    ContainerStatus
	State     string // raw engine state, e.g. "running", "exited", "restarting"
	IPAddress string
	StartedAt time.Time
}

// HasAddress reports whether an IP address has been assigned
func (c ContainerInfo) HasAddress() bool {
	return c.IPAddress != ""
}

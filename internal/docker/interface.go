// internal/docker/interface.go
package docker

import (
	"github.com/rusenback/idlemon/internal/activity"
	"github.com/rusenback/idlemon/internal/monitor"
)

// Varmista että Client toteuttaa interfacet
var (
	_ monitor.Lifecycle  = (*Client)(nil)
	_ activity.LogSource = (*Client)(nil)
)

// internal/docker/container.go
package docker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/rusenback/idlemon/internal/model"
)

// Status inspects the container and reports its coarse state and IP address
func (c *Client) Status(ctx context.Context) (model.ContainerInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	inspect, err := c.cli.ContainerInspect(ctx, c.container)
	if err != nil {
		return model.ContainerInfo{}, fmt.Errorf("inspect container %s: %w", c.container, err)
	}

	return containerInfo(inspect), nil
}

// Start käynnistää containerin
func (c *Client) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.cli.ContainerStart(ctx, c.container, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", c.container, err)
	}
	return nil
}

// Stop pysäyttää containerin. Palvelimella on stopTimeout aikaa sammua
// siististi ennen kuin se tapetaan.
func (c *Client) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout+c.stopTimeout)
	defer cancel()

	timeout := int(c.stopTimeout.Seconds()) // Sekuntia
	if err := c.cli.ContainerStop(ctx, c.container, container.StopOptions{
		Timeout: &timeout,
	}); err != nil {
		return fmt.Errorf("stop container %s: %w", c.container, err)
	}
	return nil
}

func containerInfo(inspect types.ContainerJSON) model.ContainerInfo {
	info := model.ContainerInfo{}

	if inspect.ContainerJSONBase != nil {
		// Poista "/" container nimen alusta
		info.Name = strings.TrimPrefix(inspect.Name, "/")
		if inspect.State != nil {
			info.State = inspect.State.Status
			info.Status = mapState(inspect.State.Status)
			if started, err := time.Parse(time.RFC3339Nano, inspect.State.StartedAt); err == nil {
				info.StartedAt = started
			}
		}
	}

	info.IPAddress = ipAddress(inspect.NetworkSettings)
	return info
}

func mapState(state string) model.ContainerStatus {
	switch state {
	case "running":
		return model.StatusRunning
	case "created", "exited", "dead":
		return model.StatusStopped
	case "restarting", "paused", "removing":
		return model.StatusTransitioning
	default:
		return model.StatusUnknown
	}
}

// ipAddress prefers the default bridge address, then the first user network
// in name order.
func ipAddress(settings *types.NetworkSettings) string {
	if settings == nil {
		return ""
	}
	if settings.IPAddress != "" {
		return settings.IPAddress
	}

	names := make([]string, 0, len(settings.Networks))
	for name := range settings.Networks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if ep := settings.Networks[name]; ep != nil && ep.IPAddress != "" {
			return ep.IPAddress
		}
	}
	return ""
}

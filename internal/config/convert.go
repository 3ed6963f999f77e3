package config

import (
	"github.com/rusenback/idlemon/internal/activity"
	"github.com/rusenback/idlemon/internal/docker"
	"github.com/rusenback/idlemon/internal/monitor"
	"github.com/rusenback/idlemon/internal/notify"
	"github.com/rusenback/idlemon/internal/probe"
	"github.com/rusenback/idlemon/internal/storage"
)

func (c *Config) DockerConfig() docker.Config {
	return docker.Config{
		Host:        c.Docker.Host,
		TLSVerify:   c.Docker.TLSVerify,
		CertPath:    c.Docker.CertPath,
		Timeout:     c.Docker.Timeout.Duration,
		StopTimeout: c.Docker.StopTimeout.Duration,
		Container:   c.Container,
	}
}

func (c *Config) ProbeConfig() probe.Config {
	return probe.Config{
		PortTimeout:       c.Probe.PortTimeout.Duration,
		ConnectTimeout:    c.Probe.ConnectTimeout.Duration,
		ModernReadTimeout: c.Probe.ModernReadTimeout.Duration,
		LegacyReadTimeout: c.Probe.LegacyReadTimeout.Duration,
		QueryTimeout:      c.Probe.QueryTimeout.Duration,
		ProtocolVersion:   c.Probe.ProtocolVersion,
		QueryPort:         c.Server.QueryPort,
	}
}

func (c *Config) LogWindows() activity.Windows {
	return activity.Windows{
		Tail:               c.Logs.Tail,
		ActivityLookback:   c.Logs.ActivityLookback,
		ConnectionLookback: c.Logs.ConnectionLookback,
		EstimateLookback:   c.Logs.EstimateLookback,
	}
}

func (c *Config) MonitorConfig() monitor.Config {
	return monitor.Config{
		StateKey:         c.Monitor.StateKey,
		Address:          c.Server.Address,
		Port:             c.Server.Port,
		Interval:         c.Monitor.Interval.Duration,
		EmptyThreshold:   c.Monitor.EmptyThreshold,
		FailureThreshold: c.Monitor.FailureThreshold,
		FinalTail:        c.Logs.FinalTail,
		FinalLookback:    c.Logs.FinalLookback,
		FinalSince:       c.Logs.FinalSince.Duration,
	}
}

func (c *Config) NotifyConfig() notify.Config {
	return notify.Config{
		URL:        c.Notify.AMQPURL,
		Exchange:   c.Notify.Exchange,
		RoutingKey: c.Notify.RoutingKey,
	}
}

func (c *Config) S3Config() storage.S3Config {
	return storage.S3Config{
		Bucket:   c.State.S3.Bucket,
		Region:   c.State.S3.Region,
		Endpoint: c.State.S3.Endpoint,
		Prefix:   c.State.S3.Prefix,
	}
}

package config

import (
	"fmt"
	"strconv"
	"time"
)

type lookupFunc func(key string) (string, bool)

type envBinding struct {
	key string
	set func(c *Config, value string) error
}

func str(field func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func integer(field func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func duration(field func(c *Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		field(c).Duration = d
		return nil
	}
}

var envBindings = []envBinding{
	{"IDLEMON_CONTAINER", str(func(c *Config) *string { return &c.Container })},
	{"IDLEMON_DOCKER_HOST", str(func(c *Config) *string { return &c.Docker.Host })},
	{"IDLEMON_DOCKER_TIMEOUT", duration(func(c *Config) *Duration { return &c.Docker.Timeout })},
	{"IDLEMON_DOCKER_STOP_TIMEOUT", duration(func(c *Config) *Duration { return &c.Docker.StopTimeout })},
	{"IDLEMON_SERVER_ADDRESS", str(func(c *Config) *string { return &c.Server.Address })},
	{"IDLEMON_SERVER_PORT", integer(func(c *Config) *int { return &c.Server.Port })},
	{"IDLEMON_SERVER_QUERY_PORT", integer(func(c *Config) *int { return &c.Server.QueryPort })},
	{"IDLEMON_MONITOR_INTERVAL", duration(func(c *Config) *Duration { return &c.Monitor.Interval })},
	{"IDLEMON_MONITOR_EMPTY_THRESHOLD", integer(func(c *Config) *int { return &c.Monitor.EmptyThreshold })},
	{"IDLEMON_MONITOR_FAILURE_THRESHOLD", integer(func(c *Config) *int { return &c.Monitor.FailureThreshold })},
	{"IDLEMON_MONITOR_STATE_KEY", str(func(c *Config) *string { return &c.Monitor.StateKey })},
	{"IDLEMON_STATE_BACKEND", str(func(c *Config) *string { return &c.State.Backend })},
	{"IDLEMON_STATE_SQLITE_PATH", str(func(c *Config) *string { return &c.State.SQLitePath })},
	{"IDLEMON_S3_BUCKET", str(func(c *Config) *string { return &c.State.S3.Bucket })},
	{"IDLEMON_S3_REGION", str(func(c *Config) *string { return &c.State.S3.Region })},
	{"IDLEMON_S3_ENDPOINT", str(func(c *Config) *string { return &c.State.S3.Endpoint })},
	{"IDLEMON_S3_PREFIX", str(func(c *Config) *string { return &c.State.S3.Prefix })},
	{"IDLEMON_AMQP_URL", str(func(c *Config) *string { return &c.Notify.AMQPURL })},
	{"IDLEMON_AMQP_EXCHANGE", str(func(c *Config) *string { return &c.Notify.Exchange })},
	{"IDLEMON_AMQP_ROUTING_KEY", str(func(c *Config) *string { return &c.Notify.RoutingKey })},
	{"IDLEMON_LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"IDLEMON_LOG_FORMAT", str(func(c *Config) *string { return &c.Log.Format })},
}

// applyEnv overrides settings from non-empty environment variables
func (c *Config) applyEnv(lookup lookupFunc) error {
	for _, b := range envBindings {
		value, ok := lookup(b.key)
		if !ok || value == "" {
			continue
		}
		if err := b.set(c, value); err != nil {
			return fmt.Errorf("environment %s=%q: %w", b.key, value, err)
		}
	}
	return nil
}

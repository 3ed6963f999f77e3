package main

import (
	"github.com/spf13/cobra"

	"github.com/rusenback/idlemon/internal/config"
)

// registerFlags declares the persistent overrides. They only take effect when
// set explicitly, so file and environment values survive.
func registerFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.String("container", "", "Game server container name or id")
	f.String("docker-host", "", "Docker daemon address")
	f.String("address", "", "Probe this address instead of the container IP")
	f.Int("port", 0, "Game port")
	f.Int("query-port", 0, "UDP query port (default: game port)")
	f.Duration("interval", 0, "Time between monitor ticks")
	f.Int("empty-threshold", 0, "Consecutive empty checks before shutdown")
	f.Int("failure-threshold", 0, "Consecutive probe failures before counting as empty")
	f.String("state-backend", "", "State backend: sqlite or s3")
	f.String("state-key", "", "Key of the monitoring state record")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.String("log-format", "", "Log format: text or json")
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error

	str := func(name string, dst *string) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetInt(name)
		}
	}

	str("container", &cfg.Container)
	str("docker-host", &cfg.Docker.Host)
	str("address", &cfg.Server.Address)
	num("port", &cfg.Server.Port)
	num("query-port", &cfg.Server.QueryPort)
	num("empty-threshold", &cfg.Monitor.EmptyThreshold)
	num("failure-threshold", &cfg.Monitor.FailureThreshold)
	str("state-backend", &cfg.State.Backend)
	str("state-key", &cfg.Monitor.StateKey)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)

	if err == nil && f.Changed("interval") {
		cfg.Monitor.Interval.Duration, err = f.GetDuration("interval")
	}
	return err
}

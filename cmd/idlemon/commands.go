package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rusenback/idlemon/internal/config"
	"github.com/rusenback/idlemon/internal/logging"
	"github.com/rusenback/idlemon/internal/model"
	"github.com/rusenback/idlemon/internal/storage"
	"github.com/rusenback/idlemon/internal/tui"
)

func tickCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run one monitoring pass (for cron or a scheduler)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTick(cmd.Context(), cfg, newApp)
		},
	}
}

type openFunc func(context.Context, *config.Config) (*app, error)

// runTick performs one pass. A config that fails validation fails the
// command; an unreachable docker daemon or store is logged and the pass is
// skipped, leaving the next scheduled tick to retry.
func runTick(ctx context.Context, cfg *config.Config, open openFunc) error {
	a, err := open(ctx, cfg)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		logging.Get("idlemon").Error("tick skipped, collaborators unavailable", "error", err)
		return nil
	}
	defer a.Close()

	a.monitor.Tick(ctx)
	return nil
}

func runCmd(cfg *config.Config) *cobra.Command {
	var immediate bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Tick on the configured interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.monitor.Run(cmd.Context(), immediate)
		},
	}
	cmd.Flags().BoolVar(&immediate, "immediate", true, "Run the first tick right away")
	return cmd
}

func statusCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show container status and the persisted idle state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.docker.Status(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "CONTAINER\t%s\n", a.docker.Container())
			fmt.Fprintf(w, "STATUS\t%s (%s)\n", info.Status, info.State)
			fmt.Fprintf(w, "IP\t%s\n", orDash(info.IPAddress))
			if info.Status == model.StatusRunning && !info.StartedAt.IsZero() {
				fmt.Fprintf(w, "STARTED\t%s\n", info.StartedAt.Local().Format(time.RFC1123))
			}

			st, err := a.store.Load(ctx, cfg.Monitor.StateKey)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				fmt.Fprintf(w, "STATE\tnone\n")
			case err != nil:
				w.Flush()
				return fmt.Errorf("load state: %w", err)
			default:
				fmt.Fprintf(w, "LAST PLAYERS\t%s\n", formatTime(st.LastPlayersSeenAt))
				fmt.Fprintf(w, "LAST CHECK\t%s\n", formatTime(st.LastCheckTime))
				fmt.Fprintf(w, "EMPTY CHECKS\t%d/%d\n", st.ConsecutiveEmptyChecks, cfg.Monitor.EmptyThreshold)
				fmt.Fprintf(w, "PROBE FAILURES\t%d/%d\n", st.ConsecutiveProbeFailures, cfg.Monitor.FailureThreshold)
			}
			return w.Flush()
		},
	}
}

func startCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the server and reset the idle counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.monitor.StartServer(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Started: %s\n", a.docker.Container())
			return nil
		},
	}
}

func stopCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the server now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.docker.Stop(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Stopped: %s\n", a.docker.Container())
			return nil
		},
	}
}

func probeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [host]",
		Short: "Ask the server for its player count",
		Long: "Probe the game server with the modern, legacy and query protocols in turn.\n" +
			"With a host argument no docker daemon is needed.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			host := cfg.Server.Address
			if len(args) == 1 {
				host = args[0]
			}

			if host == "" {
				a, err := newApp(ctx, cfg)
				if err != nil {
					return err
				}
				defer a.Close()

				info, err := a.docker.Status(ctx)
				if err != nil {
					return err
				}
				if !info.HasAddress() {
					return fmt.Errorf("container %s has no IP address (status %s)", a.docker.Container(), info.Status)
				}
				host = info.IPAddress
			}

			result := newProber(cfg).Probe(ctx, host, cfg.Server.Port)
			fmt.Printf("%s:%d %s\n", host, cfg.Server.Port, result)
			return nil
		},
	}
}

func watchCmd(cfg *config.Config) *cobra.Command {
	var refresh time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of the server and the idle monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return tui.Run(tui.Options{
				Container:      a.docker.Container(),
				Lifecycle:      a.docker,
				Store:          a.store,
				Prober:         a.prober,
				Logs:           a.docker,
				Start:          a.monitor.StartServer,
				StateKey:       cfg.Monitor.StateKey,
				Address:        cfg.Server.Address,
				Port:           cfg.Server.Port,
				Interval:       cfg.Monitor.Interval.Duration,
				EmptyThreshold: cfg.Monitor.EmptyThreshold,
				Refresh:        refresh,
				LogTail:        cfg.Logs.Tail,
			})
		},
	}
	cmd.Flags().DurationVar(&refresh, "refresh", 5*time.Second, "Refresh interval")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC1123)
}

func configCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: "Write the built-in defaults, plus any flags given, to --config or the default path.\n" +
			"The existing file is neither read nor overwritten unless --force is set.",
		Args: cobra.NoArgs,
		// replaces the root hook so a missing --config file is not an error
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Configure(logging.LevelInfo, logging.FormatText)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}

			path := *configPath
			if path == "" {
				path = config.Path()
			}
			if err := writeConfigFile(path, cfg, force); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func writeConfigFile(path string, cfg *config.Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	return cfg.Save(path)
}

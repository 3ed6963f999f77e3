// cmd/idlemon/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rusenback/idlemon/internal/config"
	"github.com/rusenback/idlemon/internal/logging"
)

var version = "dev"

func main() {
	var (
		configPath string
		debug      bool
		cfg        *config.Config
	)

	root := &cobra.Command{
		Use:           "idlemon",
		Short:         "Stops an idle Minecraft server container",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, loaded); err != nil {
				return err
			}
			if debug {
				loaded.Log.Level = logging.LevelDebug
			}
			if err := logging.Configure(loaded.Log.Level, loaded.Log.Format); err != nil {
				return err
			}
			*cfg = *loaded
			return nil
		},
	}
	cfg = config.Default()

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/idlemon/config.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	registerFlags(root)

	root.AddCommand(tickCmd(cfg))
	root.AddCommand(runCmd(cfg))
	root.AddCommand(statusCmd(cfg))
	root.AddCommand(startCmd(cfg))
	root.AddCommand(stopCmd(cfg))
	root.AddCommand(probeCmd(cfg))
	root.AddCommand(watchCmd(cfg))
	root.AddCommand(configCmd(&configPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

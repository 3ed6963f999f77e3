package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rusenback/idlemon/internal/activity"
	"github.com/rusenback/idlemon/internal/config"
	"github.com/rusenback/idlemon/internal/docker"
	"github.com/rusenback/idlemon/internal/logging"
	"github.com/rusenback/idlemon/internal/monitor"
	"github.com/rusenback/idlemon/internal/notify"
	"github.com/rusenback/idlemon/internal/probe"
	"github.com/rusenback/idlemon/internal/storage"
)

type stateStore interface {
	monitor.StateStore
	io.Closer
}

// app holds the wired collaborators for one command invocation
type app struct {
	cfg      *config.Config
	docker   *docker.Client
	store    stateStore
	notifier *notify.AMQPNotifier
	prober   *probe.Prober
	analyzer *activity.Analyzer
	monitor  *monitor.Monitor
	logger   *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logging.Get("idlemon")}

	dc, err := docker.NewClient(ctx, cfg.DockerConfig())
	if err != nil {
		return nil, fmt.Errorf("connect to docker: %w", err)
	}
	a.docker = dc

	store, err := openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	deps := monitor.Deps{
		Lifecycle: dc,
		Store:     store,
	}

	if cfg.Notify.AMQPURL != "" {
		n, err := notify.NewAMQPNotifier(cfg.NotifyConfig())
		if err != nil {
			// notifications are optional; the monitor works without them
			a.logger.Warn("notifications disabled", "error", err)
		} else {
			a.notifier = n
			deps.Notifier = n
		}
	}

	a.prober = newProber(cfg)
	a.analyzer = activity.NewAnalyzer(dc, cfg.LogWindows(), logging.Get("activity"))
	deps.Prober = a.prober
	deps.Analyzer = a.analyzer

	a.monitor = monitor.New(cfg.MonitorConfig(), deps, logging.Get("monitor"))
	return a, nil
}

func (a *app) Close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Debug("close notifier", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Debug("close state store", "error", err)
		}
	}
	if a.docker != nil {
		a.docker.Close()
	}
}

func openStore(ctx context.Context, cfg *config.Config) (stateStore, error) {
	switch cfg.State.Backend {
	case config.BackendS3:
		s, err := storage.NewS3Store(ctx, cfg.S3Config())
		if err != nil {
			return nil, fmt.Errorf("open s3 state store: %w", err)
		}
		return nopCloser{s}, nil
	default:
		s, err := storage.NewSQLiteStore(cfg.State.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite state store: %w", err)
		}
		return s, nil
	}
}

type nopCloser struct{ monitor.StateStore }

func (nopCloser) Close() error { return nil }

func newProber(cfg *config.Config) *probe.Prober {
	return probe.New(cfg.ProbeConfig(), nil, logging.Get("probe"))
}

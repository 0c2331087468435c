package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lamim/nlpforge/internal/api"
	"github.com/lamim/nlpforge/internal/checkpoint"
	"github.com/lamim/nlpforge/internal/config"
	"github.com/lamim/nlpforge/internal/metrics"
	"github.com/lamim/nlpforge/internal/training"
	"github.com/lamim/nlpforge/internal/writer"
)

// app bundles the loaded config with the service client
type app struct {
	cfg     *config.Config
	secrets *config.Secrets
	client  *api.Client
	metrics *metrics.Collector
	logger  *slog.Logger
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// loadApp loads the env file and config and builds the client.
// Logging goes to stderr until a session logger replaces it.
func loadApp() (*app, error) {
	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load env file: %v\n", err)
		}
	}

	cfg, secrets, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: consoleLevel()}))
	rt := &app{cfg: cfg, secrets: secrets, logger: logger}
	rt.setLogger(logger)
	return rt, nil
}

// consoleLevel keeps one-shot commands quiet unless --verbose is set
func consoleLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

func (rt *app) setLogger(logger *slog.Logger) {
	rt.logger = logger
	rt.metrics = metrics.NewCollector(logger)
	rt.client = api.NewClient(rt.cfg.Service, rt.secrets.APIToken, logger)
	rt.client.SetMetrics(rt.metrics)
}

// serveMetrics starts the metrics endpoint when --metrics-addr is set
func (rt *app) serveMetrics(ctx context.Context) {
	if metricsAddr == "" {
		return
	}
	go func() {
		if err := rt.metrics.Serve(ctx, metricsAddr); err != nil {
			rt.logger.Error("Metrics server failed", "addr", metricsAddr, "error", err)
		}
	}()
}

func (rt *app) newController() *training.Controller {
	c := training.NewController(rt.client, training.Options{
		StatusInterval:   rt.cfg.Polling.StatusInterval(),
		RegistryInterval: rt.cfg.Polling.RegistryInterval(),
	}, rt.logger)
	c.SetMetrics(rt.metrics)
	return c
}

// sessionRuntime is an app bound to a session output directory
type sessionRuntime struct {
	*app
	sessionMgr *writer.SessionManager
	logFile    *os.File
	journal    *checkpoint.Manager
	statusLog  *writer.StatusLog
}

// openSession creates (or reopens) a session directory and switches
// logging to it. The console only gets warnings so prompts stay readable.
func (rt *app) openSession(resume string, console io.Writer) (*sessionRuntime, error) {
	sessionMgr, err := writer.NewSessionManager(rt.logger, rt.cfg.Wizard.OutputDir, resume)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logger, logFile, err := writer.SetupLogger(sessionMgr, console, logLevel(), consoleLevel())
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	rt.setLogger(logger)

	logger.Info("nlpforge starting",
		"version", Version,
		"config", configPath,
		"service", rt.cfg.Service.BaseURL,
		"session_dir", sessionMgr.GetSessionDir())

	if _, err := os.Stat(configPath); err == nil {
		if err := sessionMgr.BackupConfig(configPath); err != nil {
			logger.Warn("Failed to backup config", "error", err)
		}
	}

	statusLog, err := writer.NewStatusLog(sessionMgr, logger)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}

	return &sessionRuntime{
		app:        rt,
		sessionMgr: sessionMgr,
		logFile:    logFile,
		journal:    checkpoint.Open(sessionMgr.GetSessionDir(), rt.cfg.Service.BaseURL, logger),
		statusLog:  statusLog,
	}, nil
}

func (sr *sessionRuntime) Close() {
	if err := sr.journal.Close(); err != nil {
		sr.logger.Error("Failed to close job journal", "error", err)
	}
	if err := sr.statusLog.Close(); err != nil {
		sr.logger.Error("Failed to close status log", "error", err)
	}
	if sr.logFile != nil {
		_ = sr.logFile.Sync()
		_ = sr.logFile.Close()
	}
}

// signalContext cancels on SIGTERM. SIGINT is delivered on the returned
// channel when someone is receiving (a progress watch); otherwise it
// cancels the context too.
func signalContext() (context.Context, <-chan struct{}, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	ctx, stopTerm := signal.NotifyContext(ctx, syscall.SIGTERM)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	interrupt := make(chan struct{})

	go func() {
		for {
			select {
			case <-sigCh:
				select {
				case interrupt <- struct{}{}:
				default:
					cancel()
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return ctx, interrupt, func() {
		signal.Stop(sigCh)
		stopTerm()
		cancel()
	}
}

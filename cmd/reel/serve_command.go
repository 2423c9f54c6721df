package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reel/internal/api"
	"reel/internal/batch"
	"reel/internal/engine"
	"reel/internal/logging"
	"reel/internal/logs"
	"reel/internal/queue"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the conversion service with its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx)
		},
	}
}

func runServe(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := logs.RunLogPath(cfg.Paths.LogDir, runID)
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logs.UpdatePointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update reel.log link: %v\n", err)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "reel.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another reel instance is already running")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()

	pidPath := filepath.Join(cfg.Paths.LogDir, "reel.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job database: %w", err)
	}
	defer store.Close()

	// Converting rows from a previous process cannot resume; settle them
	// before the API exposes the catalog.
	failed, dropped, err := store.FailStuckConverting(signalCtx)
	if err != nil {
		logger.Warn("could not sweep interrupted jobs", logging.Error(err))
	} else if failed > 0 || dropped > 0 {
		logger.Info("swept interrupted jobs",
			logging.Int64("failed", failed),
			logging.Int64("dropped", dropped))
	}

	session := engine.NewSession(cfg, logger)
	defer session.Terminate()

	coordinator := batch.NewCoordinator(cfg, store, session, logger)

	server, err := api.NewServer(cfg, coordinator, store, logger)
	if err != nil {
		return fmt.Errorf("build api server: %w", err)
	}
	if server == nil {
		return errors.New("api bind address is not configured; set paths.api_bind")
	}
	if err := server.Start(signalCtx); err != nil {
		return err
	}

	logger.Info("reel serving", logging.String("address", server.Addr()))
	<-signalCtx.Done()
	logger.Info("reel shutting down")

	server.Stop()
	coordinator.Stop()
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

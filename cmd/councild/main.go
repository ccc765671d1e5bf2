// Command councild runs the council daemon: it loads the model registry,
// serves the meeting API, and streams deliberation events over WebSocket.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/asdersss/EZ-LLMcouncil/internal/config"
	"github.com/asdersss/EZ-LLMcouncil/internal/council"
	"github.com/asdersss/EZ-LLMcouncil/internal/events"
	"github.com/asdersss/EZ-LLMcouncil/internal/llm"
	"github.com/asdersss/EZ-LLMcouncil/internal/logging"
	"github.com/asdersss/EZ-LLMcouncil/internal/meeting"
	"github.com/asdersss/EZ-LLMcouncil/internal/server"
	"github.com/asdersss/EZ-LLMcouncil/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	// Missing .env is fine; api keys can come from the real environment.
	_ = godotenv.Load()

	if err := run(*configPath); err != nil {
		log.Fatalf("councild: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	registry := config.NewRegistry(cfg)
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.Logging.Level))
	logger.Infof("main: config_loaded path=%s models=%d chairman=%s", configPath, len(registry.ModelIDs()), cfg.Chairman)

	watcher, err := config.NewWatcher(configPath, registry, logger)
	if err != nil {
		return err
	}
	watcher.Start()
	defer func() { _ = watcher.Close() }()

	var sink events.Sink
	if cfg.Storage.JournalEvents {
		journal, err := events.NewJournal(filepath.Join(cfg.Storage.DataDir, "journal"))
		if err != nil {
			return err
		}
		defer func() { _ = journal.Close() }()
		sink = journal
	}
	hub := events.NewHub(sink)

	convs, err := storage.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return err
	}

	gateway := llm.NewClient(cfg.Settings.Temperature, logger)
	limiter := llm.NewLimiter(cfg.Settings.MaxConcurrent)
	store := meeting.NewStore()
	pipeline := council.NewPipeline(gateway, registry, store, hub, limiter, logger)
	coord := meeting.NewCoordinator(store, hub, pipeline, registry, convs, logger)

	srv := server.New(coord, registry, convs, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.Server.Addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Infof("main: shutdown_requested signal=%s", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warnf("main: server_shutdown err=%q", err)
	}
	if err := coord.Shutdown(ctx); err != nil {
		logger.Warnf("main: coordinator_shutdown err=%q", err)
	}
	logger.Infof("main: stopped")
	return nil
}

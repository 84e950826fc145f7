package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/normanking/facemetrics/internal/bus"
	"github.com/normanking/facemetrics/internal/config"
	"github.com/normanking/facemetrics/internal/logging"
	"github.com/normanking/facemetrics/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(&logging.Config{
		LogDir:  cfg.Logging.Dir,
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	log := logger.Component("main")

	eventBus := bus.NewEventBus()
	eventBus.SubscribeMultiple([]bus.EventType{
		bus.EventTypeSessionStarted,
		bus.EventTypeSessionStopped,
		bus.EventTypeSessionCleared,
		bus.EventTypeBaselineStarted,
		bus.EventTypeBaselineSet,
		bus.EventTypeBaselineReset,
	}, func(e bus.Event) {
		log.Info().Str("event", string(e.Type)).Fields(e.Data).Msg("Lifecycle event")
	})
	eventBus.Subscribe(bus.EventTypeStreamError, func(e bus.Event) {
		log.Warn().Fields(e.Data).Msg("Stream error")
	})

	server := stream.NewServer(stream.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadLimitBytes: cfg.Server.ReadLimitBytes,
	}, cfg.EngineConfig(), eventBus, logger.Zerolog())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to start stream server")
		os.Exit(1)
	}

	// Hot reload: new pipeline settings apply to connections accepted after
	// the change.
	config.Watch(logger.Component("config"), func(updated *config.Config) {
		server.SetEngineConfig(updated.EngineConfig())
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("Shutting down")
	cancel()
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/roomrelay/internal/auth"
	"github.com/Tyrowin/roomrelay/internal/server"
	"github.com/Tyrowin/roomrelay/internal/store"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanup happens before the process exits.
func run() error {
	_ = godotenv.Load()
	config, err := server.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	chats, err := store.Open(store.Options{
		Driver: config.StoreDriver,
		Path:   config.StorePath(),
	})
	if err != nil {
		return fmt.Errorf("chat store opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing chat store...")
		_ = chats.Close()
	}()

	relay := server.NewRelay(config, log, auth.NewJWTVerifier(config.JWTSecret), chats)
	httpServer := server.CreateServer(config.Address(), relay.SetupRoutes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.StartServer(log, httpServer)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	}

	if err := server.ShutdownServer(log, httpServer, config.ShutdownTimeout); err != nil {
		log.Warn("HTTP server did not shut down cleanly", "error", err)
	}
	if err := relay.Shutdown(config.ShutdownTimeout); err != nil {
		log.Warn("Relay did not shut down cleanly", "error", err)
	}
	log.Info("Relay stopped cleanly")
	return nil
}

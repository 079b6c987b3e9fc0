package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/config"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/relay"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/pkg/handlers"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// RunApp - runs the rendezvous relay.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	var err error

	var registry relay.RoomRegistry
	var ready func(ctx context.Context) error

	if conf.Redis.Enabled {
		redisClient, redisErr := relay.NewRedisClient(ctx, conf.Redis.GetRedisAddr())
		if redisErr != nil {
			return fmt.Errorf("could not connect to redis: %w", redisErr)
		}

		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				log.Error("could not close redis client", "error", closeErr)
			}
		}()

		registry = relay.NewRedisRegistry(redisClient, conf.Relay.RoomTTL())
		ready = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}

		log.Info("room registry on redis", "addr", conf.Redis.GetRedisAddr())
	} else {
		registry = relay.NewMemoryRegistry()
		log.Info("room registry in memory")
	}

	relayServer := relay.NewServer(ctx, logger, registry)

	mux := http.NewServeMux()
	mux.Handle("/ws", relayServer)
	mux.HandleFunc("/ping", handlers.PingHandler)
	mux.Handle("/ready", handlers.NewReadyHandler(ready))
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + conf.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// run HTTP server
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	select {
	case err = <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err = server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not shut down HTTP server: %w", err)
		}

		return nil
	}
}

// Command caldav-ics-sync is the service entrypoint: load configuration,
// open the store, load scheduled units, and serve the HTTP API until
// interrupted.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/RobbyV2/caldav-to-ics/api"
	"github.com/RobbyV2/caldav-to-ics/config"
	"github.com/RobbyV2/caldav-to-ics/engine"
	"github.com/RobbyV2/caldav-to-ics/publish"
	"github.com/RobbyV2/caldav-to-ics/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	db, err := store.Open(filepath.Join(cfg.DataDir, "caldav-sync.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	publisher := publish.NewPublisher()
	eng := engine.New(db, publisher, logger, engine.Config{HTTPTimeout: cfg.HTTPTimeout})
	if err := eng.LoadAll(); err != nil {
		return err
	}

	handler := api.NewRouter(db, eng, publisher, logger, cfg)
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("DEBUG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

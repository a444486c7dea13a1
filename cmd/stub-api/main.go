// Command stub-api serves the collaborator API contract with canned Lisbon
// data for local development and demos.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/urbanperceptions/survey-client/internal/logger"
	"github.com/urbanperceptions/survey-client/internal/observability"
	"github.com/urbanperceptions/survey-client/internal/stubapi"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", ":8000", "listen address")
	flag.Parse()

	_ = godotenv.Load()

	zl := logger.Build(logger.Config{
		Level:     os.Getenv("LOG_LEVEL"),
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "stub-api",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting stub api", "addr", *addr, "version", Version)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           stubapi.New(appLog).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		appLog.Error("server failed", "err", err)
		return 1
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("shutdown failed", "err", err)
		return 1
	}
	appLog.Info("stub api stopped")
	return 0
}

// Linkhubd is the daemon behind a personal link hub.
//
// It loads configuration, serves the link page, slug redirects and the JSON
// API, and keeps a live Lanyard presence feed (or a demo feed) flowing to
// the page over WebSocket. Shutdown is handled gracefully on SIGINT or
// SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/large-farva/linkhub/internal/app"
	"github.com/large-farva/linkhub/internal/config"
	"github.com/large-farva/linkhub/internal/logging"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/linkhub/linkhub.toml", "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides server.bind)")
		demo       = pflag.Bool("demo", false, "Serve a rotating fake presence instead of connecting to Lanyard")
		subscriber = pflag.String("subscriber", "", "Discord user id to subscribe to (overrides presence.subscriber_id)")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if *demo {
		cfg.Demo.Enabled = true
	}
	if *subscriber != "" {
		cfg.Presence.SubscriberID = *subscriber
	}

	logger, err := logging.New(cfg.Logging, "linkhubd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(app.Options{
		Logger: logger,
		Cfg:    cfg,
		Bind:   *bind,
	})
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("linkhubd failed", zap.Error(err))
	}
	logger.Info("stopped")
}

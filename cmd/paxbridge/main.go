package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"github.com/salonpos/paxbridge/bridge"
)

func main() {
	configPath := flag.String("config", os.Getenv("PAXBRIDGE_CONFIG"), "path to the bridge YAML config")
	debug := flag.Bool("debug", false, "log request frames")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := bridge.LoadConfig(*configPath)
	if err != nil {
		logger.Error("loading config", "err", err)
		os.Exit(1)
	}

	app := bridge.NewApp(logger, cfg)
	if err := app.Start(); err != nil {
		logger.Error("starting app", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	// a sale in flight may still be waiting on the customer
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DefaultTimeout+5*time.Second)
	defer cancel()
	app.Shutdown(shutdownCtx)
}

// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/luxfi/bidagent/pkg/agent"
	"github.com/luxfi/bidagent/pkg/config"
	"github.com/luxfi/bidagent/pkg/journal"
	"github.com/luxfi/bidagent/pkg/log"
	"github.com/luxfi/bidagent/pkg/metric"
	"github.com/luxfi/bidagent/pkg/rank"
	"github.com/luxfi/bidagent/pkg/transport"
)

var (
	configName = flag.String("config", "bidagent", "Config file name, searched in . and /etc/bidagent")
	logLevel   = flag.String("log-level", "", "Log level override")

	// Version info
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flag.Parse()

	fmt.Printf("Bidding agent (bidagentd) %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)

	v := viper.New()
	config.SetupViper(v, *configName)
	cfg, err := config.New(v)
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger := log.NewWithFormat(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bidding agent stopped", log.Error(err))
		os.Exit(1)
	}
	fmt.Println("Daemon stopped")
}

func run(ctx context.Context, cfg *config.Configuration, logger log.Logger) error {
	metrics := metric.NewMetrics()

	var recorder journal.Recorder
	if cfg.Journal.Enabled {
		pg, err := journal.NewPostgresRecorder(ctx, cfg.Journal.DSN)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer pg.Close()
		recorder = pg
	}

	client, err := transport.Dial(ctx, transport.Config{
		URL:          cfg.Server.URL,
		AgentName:    cfg.Server.AgentName,
		Codec:        cfg.Server.Codec,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	a := agent.New(agent.Options{
		Policy:    cfg.Policy.Bid,
		Modifiers: cfg.Policy.Modifiers,
		Spike:     cfg.Policy.Spike,
		BidRank:   rank.Strategy(cfg.Policy.BidRank),
		AdRank:    rank.Strategy(cfg.Policy.AdRank),
		Profit:    cfg.Policy.ProfitSource,
		Publisher: client,
		Journal:   recorder,
		Metrics:   metrics,
		Log:       logger,
	})

	ops := &http.Server{
		Addr:    cfg.Ops.Listen,
		Handler: newOpsRouter(a, metrics),
	}
	go func() {
		logger.Info("ops server listening", log.String("addr", cfg.Ops.Listen))
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", log.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ops.Shutdown(shutdownCtx); err != nil {
			logger.Error("ops server shutdown error", log.Error(err))
		}
	}()

	logger.Info("bidding agent running",
		log.Stringer("session", a.SessionID()),
		log.String("agent", cfg.Server.AgentName),
	)
	return client.Run(ctx, a)
}

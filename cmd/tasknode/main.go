package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/womboai/pft-nft-node/internal/api"
	"github.com/womboai/pft-nft-node/internal/arbiter"
	"github.com/womboai/pft-nft-node/internal/config"
	"github.com/womboai/pft-nft-node/internal/events"
	"github.com/womboai/pft-nft-node/internal/graph"
	"github.com/womboai/pft-nft-node/internal/ledger"
	"github.com/womboai/pft-nft-node/internal/memo"
	"github.com/womboai/pft-nft-node/internal/node"
	"github.com/womboai/pft-nft-node/internal/reconcile"
	"github.com/womboai/pft-nft-node/internal/reward"
	"github.com/womboai/pft-nft-node/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Ledger.NodeAccount == "" {
		logger.Error("node account not configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// NATS (optional)
	var bus events.Client = events.Noop{}
	if cfg.NATS.URL != "" {
		nc, err := events.NewNATSClient(ctx, cfg.NATS.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to nats, running without events", "error", err)
		} else {
			bus = nc
			defer nc.Close()
			logger.Info("connected to nats")
		}
	}

	// Ledger gateway and arbiter
	ledgerClient := ledger.NewHTTPClient(cfg.Ledger.URL)
	arbiterClient := arbiter.NewHTTPClient(cfg.Arbiter.URL, cfg.Arbiter.Model, cfg.Arbiter.Token)

	// Workflow graph and reconciler
	g, err := graph.Default()
	if err != nil {
		logger.Error("invalid workflow graph", "error", err)
		os.Exit(1)
	}
	rec := reconcile.New(g, db, logger)

	// Responders
	gens := node.NewGenerators(rec, db, arbiterClient, arbiterClient, ledgerClient, cfg, logger)
	rewards := reward.NewPipeline(rec, db, arbiterClient, ledgerClient, reward.Config{
		NodeAccount:     cfg.Ledger.NodeAccount,
		NodeName:        cfg.Ledger.NodeName,
		MinReward:       cfg.Reward.Min,
		MaxReward:       cfg.Reward.Max,
		HistoryWindow:   cfg.RewardHistoryWindow(),
		ArbiterAttempts: cfg.Arbiter.Attempts,
	}, logger)

	// Processor
	p := node.New(db, ledgerClient, rec, g, bus, cfg, logger)
	p.RegisterResponder(memo.KindRequest, gens.Proposal)
	p.RegisterResponder(memo.KindTaskOutput, gens.VerificationPrompt)
	p.RegisterResponder(memo.KindImageGen, gens.ImageResponse)
	p.RegisterResponder(memo.KindVerificationResponse, rewards.Respond)
	p.Start(ctx)
	defer p.Stop()
	logger.Info("processor started", "account", cfg.Ledger.NodeAccount, "poll_interval", cfg.PollInterval())

	_ = bus.Publish(events.SubjectNodeStarted, map[string]string{"account": cfg.Ledger.NodeAccount, "name": cfg.Ledger.NodeName})

	// API server
	router := api.NewRouter(db, cfg.Ledger.NodeAccount, cfg.Server.AdminToken, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsRouter := api.NewMetricsRouter()
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsRouter,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

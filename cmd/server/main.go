package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/commands"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/use_cases"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/config"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/auth"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/bootstrap"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/http/handlers"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/http/server"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/monitoring"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/scheduler"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/tracing"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/generator"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	flag.Parse()

	bootLog := logger.NewLogger()

	cfg, configErr := config.LoadConfig(*configPath)
	if configErr != nil {
		bootLog.Fatal("Failed to load configuration", "error", configErr)
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.Log.Level))
	log.Info("Starting Flash Sale Service", "driver", cfg.Database.Driver, "redis", cfg.Redis.Enabled)

	serverCtx, serverStopCtx := context.WithCancel(context.Background())
	defer serverStopCtx()

	shutdownTracing, tracingErr := tracing.Init(serverCtx, cfg.Tracing)
	if tracingErr != nil {
		log.Fatal("Failed to initialise tracing", "error", tracingErr)
	}

	clk := clock.NewRealClock()

	infra, infraErr := bootstrap.Open(serverCtx, cfg, clk, log)
	if infraErr != nil {
		log.Fatal("Failed to open storage", "error", infraErr)
	}
	defer infra.Close()

	indexed, indexErr := infra.WarmIndex(serverCtx)
	if indexErr != nil {
		log.Error("Failed to warm sale index", "error", indexErr)
	} else {
		log.Info("Sale index warmed", "sales", indexed)
	}

	authenticator := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenLifetime(), log)

	reserveUseCase := use_cases.NewReserveUseCase(
		infra.Sales,
		infra.Cache,
		clk,
		log,
		use_cases.WithSaleIndex(infra.Index),
		use_cases.WithRetryPolicy(use_cases.RetryPolicy{
			Attempts:    cfg.Allocator.RetryAttempts,
			BaseBackoff: cfg.Allocator.BaseBackoff(),
			MaxBackoff:  cfg.Allocator.MaxBackoff(),
		}),
		use_cases.WithRetryHook(monitoring.RecordAllocatorRetry),
	)
	queryUseCase := use_cases.NewSaleQueryUseCase(infra.Sales, infra.Cache, infra.Index, clk, log, cfg.Redis.ListingTTL())
	adminUseCase := use_cases.NewAdminUseCase(
		infra.Sales,
		infra.Catalog,
		infra.Cache,
		infra.Index,
		auth.ContextAuth{},
		generator.NewTypeIDGenerator(),
		clk,
		log,
	)

	var cachePinger handlers.Pinger
	if pinger := infra.CachePinger(); pinger != nil {
		cachePinger = pinger
	}

	httpServer := server.NewServer(cfg.Server, server.Handlers{
		Health:  handlers.NewHealthHandler(infra.Sales, cachePinger, log),
		Sale:    handlers.NewSaleHandler(queryUseCase, log),
		Reserve: handlers.NewReserveHandler(commands.NewReserveHandler(reserveUseCase, log), log),
		Admin:   handlers.NewAdminHandler(adminUseCase, clk, cfg.Analytics.WindowHours, log),
		Auth:    authenticator.Middleware,
	}, log)

	refresher := scheduler.NewAnalyticsRefresher(
		infra.Sales,
		clk,
		log,
		cfg.Analytics.RefreshInterval(),
		cfg.Analytics.Window(),
	)
	go refresher.Start(serverCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigChan
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Info("Shutting down server...")
		refresher.Stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("Tracer shutdown error", "error", err)
		}

		serverStopCtx()
	}()

	log.Info("Server starting", "address", cfg.Server.Addr())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server failed", "error", err)
	}

	<-serverCtx.Done()
	log.Info("Server stopped")
}

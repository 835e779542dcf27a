package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/routeplanner/internal/adapters/http"
	"github.com/samirrijal/routeplanner/internal/adapters/memory"
	natsadapter "github.com/samirrijal/routeplanner/internal/adapters/nats"
	"github.com/samirrijal/routeplanner/internal/adapters/postgres"
	"github.com/samirrijal/routeplanner/internal/adapters/valkey"
	"github.com/samirrijal/routeplanner/internal/core/ports"
	"github.com/samirrijal/routeplanner/internal/core/usecases"
	"github.com/samirrijal/routeplanner/internal/pkg/config"
	"github.com/samirrijal/routeplanner/internal/pkg/logging"
	"github.com/samirrijal/routeplanner/internal/pkg/metrics"
	"github.com/samirrijal/routeplanner/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("routeplanner-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "service", cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Storage
	var (
		deliveries ports.DeliveryRepository
		routes     ports.RouteRepository
		dbPinger   http.Pinger
	)
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		if cfg.Storage.Fixture != "" {
			n, err := store.LoadFixture(cfg.Storage.Fixture)
			if err != nil {
				log.Fatalf("storage fixture: %v", err)
			}
			slog.Info("memory storage seeded", "fixture", cfg.Storage.Fixture, "deliveries", n)
		}
		deliveries, routes, dbPinger = store, store, store
		slog.Warn("using in-memory storage, data is lost on restart")
	default:
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		deliveries, routes, dbPinger = postgres.NewDeliveryRepo(db), postgres.NewRouteRepo(db), db
		go reportPoolStats(ctx, db)
	}

	// Cache
	var (
		cache       ports.CacheService
		cachePinger http.Pinger
	)
	if vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache, cachePinger = vc, vc
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Use cases
	optimizer := usecases.NewRouteOptimizationService(deliveries, routes, publisher, cfg.Routing.Engine())
	routeSvc := usecases.NewRouteService(routes, cache, publisher)

	deps := &http.Dependencies{
		Optimizer: optimizer,
		Routes:    routeSvc,
		NATS:      natsConn,
		DB:        dbPinger,
		Cache:     cachePinger,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Route Planner API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "storage", cfg.Storage.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}

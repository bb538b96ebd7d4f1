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

	"github.com/samirrijal/geosketch/internal/adapters/engine"
	"github.com/samirrijal/geosketch/internal/adapters/http"
	"github.com/samirrijal/geosketch/internal/adapters/layer"
	natsadapter "github.com/samirrijal/geosketch/internal/adapters/nats"
	"github.com/samirrijal/geosketch/internal/adapters/postgres"
	"github.com/samirrijal/geosketch/internal/adapters/valkey"
	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/core/ports"
	"github.com/samirrijal/geosketch/internal/core/usecases"
	"github.com/samirrijal/geosketch/internal/pkg/config"
	"github.com/samirrijal/geosketch/internal/pkg/logging"
	"github.com/samirrijal/geosketch/internal/pkg/metrics"
	"github.com/samirrijal/geosketch/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("geosketch-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup("geosketch-api", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database (archive only; sketching works without it)
	var archive *usecases.ArchiveService
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		slog.Warn("database unavailable, archive disabled", "error", err)
		db = nil
	} else {
		defer db.Close()
		go reportPoolStats(ctx, db)
	}

	// Cache
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		vc = nil
	} else {
		defer vc.Close()
		cache = vc
	}

	// NATS
	var (
		publisher ports.EventPublisher
		notify    layer.Notifier
	)
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, captures will not be archived", "error", err)
		pub = nil
	} else {
		defer pub.Close()
		publisher = pub
		notify = pub.PublishLayerUpdate
	}

	// Use cases
	buffers := usecases.NewBufferService(engine.New(cfg.Sketch.BufferSegments), cache)
	sessions := usecases.NewSessionService(buffers, publisher,
		func(id string) ports.GraphicsLayer { return layer.New(id, notify) },
		usecases.SessionConfig{
			DefaultRadius: cfg.Sketch.DefaultRadius,
			DebounceWait:  cfg.Sketch.DebounceWait(),
			MaxSessions:   cfg.Sketch.MaxSessions,
		},
	)
	defer sessions.Close()
	if db != nil {
		archive = usecases.NewArchiveService(postgres.NewShapeRepo(db), cache)
	}

	deps := &http.Dependencies{
		Sessions: sessions,
		Buffers:  buffers,
		Archive:  archive,
		Client: domain.ClientConfig{
			Map: domain.MapConfig{
				Basemap:        cfg.Map.Basemap,
				NextBasemap:    cfg.Map.NextBasemap,
				TogglePosition: cfg.Map.TogglePosition,
				Center:         [2]float64{cfg.Map.CenterLon, cfg.Map.CenterLat},
				Zoom:           cfg.Map.Zoom,
			},
			Sketch:        domain.DefaultSketchConfig(),
			DefaultRadius: cfg.Sketch.DefaultRadius,
			RadiusUnit:    domain.UnitMeters,
		},
		DB:    db,
		Cache: vc,
	}
	if pub != nil {
		deps.NATS = pub.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "GeoSketch API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:4200, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

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

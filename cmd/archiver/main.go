package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/geosketch/internal/adapters/nats"
	"github.com/samirrijal/geosketch/internal/adapters/postgres"
	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/core/usecases"
	"github.com/samirrijal/geosketch/internal/pkg/config"
	"github.com/samirrijal/geosketch/internal/pkg/logging"
	"github.com/samirrijal/geosketch/internal/pkg/telemetry"
)

// The archiver consumes captured shapes from JetStream and stores them in PostGIS.
func main() {
	cfg, err := config.Load("geosketch-archiver")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.Setup("geosketch-archiver", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	archive := usecases.NewArchiveService(postgres.NewShapeRepo(db), nil)

	err = sub.SubscribeShapesCaptured(ctx, func(ctx context.Context, ev *domain.CaptureEvent) error {
		shape, err := archive.Record(ctx, ev)
		if errors.Is(err, domain.ErrInvalidGeometryKind) {
			// Redelivery cannot fix a malformed capture.
			logger.Warn("dropping capture", "session_id", ev.SessionID, "error", err)
			return nil
		}
		if err != nil {
			logger.Error("archive capture failed", "session_id", ev.SessionID, "error", err)
			return err
		}
		logger.Debug("capture archived", "id", shape.ID, "session_id", shape.SessionID, "kind", shape.Kind)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	logger.Info("archiver started", "stream", natsadapter.ShapesStream, "durable", natsadapter.ArchiverDurable)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received signal, shutting down archiver", "signal", sig.String())
}

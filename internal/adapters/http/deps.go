package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geosketch/internal/adapters/postgres"
	"github.com/samirrijal/geosketch/internal/adapters/valkey"
	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionService
	Buffers  usecases.BufferComputer
	Archive  *usecases.ArchiveService // nil when the archive database is not configured
	Client   domain.ClientConfig
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}

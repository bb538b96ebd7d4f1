package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/samirrijal/geosketch/internal/adapters/geoformat"
	"github.com/samirrijal/geosketch/internal/core/domain"
)

// ShapeRepo implements ports.ShapeRepository with pgx.
type ShapeRepo struct {
	db *DB
}

// NewShapeRepo creates a new ShapeRepo.
func NewShapeRepo(db *DB) *ShapeRepo {
	return &ShapeRepo{db: db}
}

// Insert stores a capture event. A redelivered event with the same session
// and geometry returns the existing row.
func (r *ShapeRepo) Insert(ctx context.Context, ev *domain.CaptureEvent) (*domain.ArchivedShape, error) {
	wkb, err := geoformat.EncodeShape(ev)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(wkb)
	key := hex.EncodeToString(sum[:])

	srid := ev.WKID
	if srid == 0 {
		srid = domain.WKIDWGS84
	}

	shape := &domain.ArchivedShape{
		SessionID:  ev.SessionID,
		Kind:       ev.Kind,
		WKID:       srid,
		CapturedAt: ev.CapturedAt,
	}
	if ev.Point != nil {
		shape.Vertices = []domain.Point{*ev.Point}
	} else {
		shape.Vertices = append([]domain.Point(nil), ev.Polygon.Vertices...)
	}

	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO captured_shapes (session_id, kind, wkid, shape_key, geom, captured_at)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_GeomFromWKB($5), $3), $6)
		ON CONFLICT (session_id, shape_key) DO UPDATE
		SET session_id = EXCLUDED.session_id
		RETURNING id::text, captured_at, created_at
	`, ev.SessionID, string(ev.Kind), srid, key, wkb, ev.CapturedAt).Scan(
		&shape.ID, &shape.CapturedAt, &shape.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert captured shape: %w", err)
	}
	return shape, nil
}

// List returns archived shapes newest first. An empty sessionID lists every session.
func (r *ShapeRepo) List(ctx context.Context, sessionID string, offset, limit int) ([]domain.ArchivedShape, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, session_id, kind, wkid, ST_AsBinary(geom), captured_at, created_at
		FROM captured_shapes
		WHERE $1 = '' OR session_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shapes []domain.ArchivedShape
	for rows.Next() {
		var (
			s    domain.ArchivedShape
			kind string
			wkb  []byte
		)
		if err := rows.Scan(&s.ID, &s.SessionID, &kind, &s.WKID, &wkb, &s.CapturedAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Kind = domain.GeometryKind(kind)
		if _, s.Vertices, err = geoformat.DecodeShape(wkb); err != nil {
			return nil, fmt.Errorf("shape %s: %w", s.ID, err)
		}
		shapes = append(shapes, s)
	}
	return shapes, rows.Err()
}

// Count returns the number of archived shapes. An empty sessionID counts every session.
func (r *ShapeRepo) Count(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM captured_shapes WHERE $1 = '' OR session_id = $1
	`, sessionID).Scan(&n)
	return n, err
}

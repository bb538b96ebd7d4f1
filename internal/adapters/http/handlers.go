package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geosketch/internal/adapters/geoformat"
	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/pkg/metrics"
)

// drawRequest is the sketch create event posted by a map client.
type drawRequest struct {
	State    domain.DrawState `json:"state"`
	Geometry json.RawMessage  `json:"geometry"`
	Color    *domain.Color    `json:"color"`
}

type radiusRequest struct {
	Radius *float64 `json:"radius"`
}

type bufferRequest struct {
	Geometry json.RawMessage   `json:"geometry"`
	Radius   float64           `json:"radius"`
	Unit     domain.LinearUnit `json:"unit"`
}

// MapConfigHandler returns the map and sketch widget configuration.
func MapConfigHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Client)
	}
}

// CreateSessionHandler starts a sketch session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := deps.Sessions.Create(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/sessions/" + w.ID())
		return c.Status(201).JSON(fiber.Map{
			"id":     w.ID(),
			"radius": w.Radius(),
		})
	}
}

// ListSessionsHandler returns the ids of live sessions.
func ListSessionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"sessions": deps.Sessions.List()})
	}
}

// DeleteSessionHandler destroys a session and drops any pending draw.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Destroy(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(204)
	}
}

// DrawHandler accepts a sketch create event. Completed sketches are queued
// behind the debounce window; every other state is acknowledged and ignored.
func DrawHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}

		var req drawRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}

		switch req.State {
		case domain.DrawStart, domain.DrawActive, domain.DrawCancel:
			metrics.DrawEvents.WithLabelValues("unknown", "ignored").Inc()
			return c.Status(202).JSON(fiber.Map{"status": "ignored", "state": req.State})
		case domain.DrawComplete:
		default:
			return errBadRequest(c, "state must be one of start, active, complete, cancel")
		}

		if len(req.Geometry) == 0 {
			return errBadRequest(c, "geometry is required for a complete event")
		}
		geom, err := geoformat.DecodeGeometry(req.Geometry)
		if err != nil {
			return errFromDomain(c, err)
		}

		ev := domain.DrawEvent{State: req.State, Geometry: geom, Color: domain.DefaultDrawColor}
		if req.Color != nil {
			ev.Color = *req.Color
		}

		queued, err := w.SubmitDrawEvent(ev)
		if err != nil {
			return errFromDomain(c, err)
		}
		status := "ignored"
		if queued {
			status = "queued"
		}
		return c.Status(202).JSON(fiber.Map{"status": status, "kind": geom.Kind()})
	}
}

// FlushDrawHandler runs a pending draw immediately.
func FlushDrawHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		ran, err := w.Flush()
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"ran": ran, "state": w.State()})
	}
}

// SetRadiusHandler changes the buffer radius and redraws the active point.
func SetRadiusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}

		var req radiusRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil || req.Radius == nil {
			return errBadRequest(c, "body must be {\"radius\": <meters>}")
		}
		if err := w.RecomputeBuffer(c.UserContext(), *req.Radius); err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"radius": w.Radius()})
	}
}

// ShapesHandler returns the recorded points and polygons of a session.
func ShapesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		if c.Query("format") == "geojson" {
			st := w.State()
			return c.JSON(geoformat.ShapesCollection(st.Points, st.Polygons))
		}
		return c.JSON(w.State())
	}
}

// GraphicsHandler returns the rendered layer as a GeoJSON FeatureCollection,
// or as Esri JSON graphics with ?format=esri.
func GraphicsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		graphics := w.Graphics()
		if c.Query("format") == "esri" {
			return c.JSON(fiber.Map{"graphics": graphics})
		}
		fc, err := geoformat.GraphicsCollection(graphics)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fc)
	}
}

// BufferHandler computes a buffer without touching any session.
func BufferHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req bufferRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		if len(req.Geometry) == 0 {
			return errBadRequest(c, "geometry is required")
		}

		geom, err := geoformat.DecodeGeometry(req.Geometry)
		if err != nil {
			return errFromDomain(c, err)
		}
		point, ok := geom.(domain.PointGeometry)
		if !ok {
			return newError(c, 422, "invalid_geometry_kind", "only point geometries can be buffered")
		}

		unit := req.Unit
		if unit == "" {
			unit = domain.UnitMeters
		}
		meters, ok := unit.Meters(req.Radius)
		if !ok {
			return errBadRequest(c, "unknown unit: "+string(unit))
		}

		poly, err := deps.Buffers.ComputeBuffer(c.UserContext(), point, meters)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"geometry": poly, "radius_m": meters})
	}
}

// ArchivedShapesHandler lists archived captures, optionally for one session.
func ArchivedShapesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Archive == nil {
			return errUnavailable(c, "archive not available")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		shapes, total, err := deps.Archive.List(c.UserContext(), c.Query("session_id"), offset, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if shapes == nil {
			shapes = []domain.ArchivedShape{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: shapes, Pagination: pg})
	}
}

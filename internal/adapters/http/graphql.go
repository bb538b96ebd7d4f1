package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/geosketch/internal/core/domain"
)

// rings converts polygon rings to nested slices; graphql-go only iterates slices.
func rings(poly domain.PolygonGeometry) [][][]float64 {
	out := make([][][]float64, len(poly.Rings))
	for i, r := range poly.Rings {
		ring := make([][]float64, len(r))
		for j, p := range r {
			ring[j] = []float64{p.X(), p.Y()}
		}
		out[i] = ring
	}
	return out
}

func sessionResult(st domain.SessionState) map[string]interface{} {
	m := map[string]interface{}{
		"id":          st.SessionID,
		"points":      st.Points,
		"polygons":    st.Polygons,
		"pointDrawn":  st.PointDrawn,
		"radius":      st.Radius,
		"pendingDraw": st.PendingDraw,
	}
	if st.ActivePoint != nil {
		m["activePoint"] = map[string]interface{}{
			"x":    st.ActivePoint.X,
			"y":    st.ActivePoint.Y,
			"wkid": st.ActivePoint.SpatialReference.Normalized().WKID,
		}
	}
	return m
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	polygonType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Polygon",
		Fields: graphql.Fields{
			"type":     &graphql.Field{Type: graphql.String},
			"vertices": &graphql.Field{Type: graphql.NewList(pointType)},
		},
	})

	geometryPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PointGeometry",
		Fields: graphql.Fields{
			"x":    &graphql.Field{Type: graphql.Float},
			"y":    &graphql.Field{Type: graphql.Float},
			"wkid": &graphql.Field{Type: graphql.Int},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"points":      &graphql.Field{Type: graphql.NewList(pointType)},
			"polygons":    &graphql.Field{Type: graphql.NewList(polygonType)},
			"activePoint": &graphql.Field{Type: geometryPointType},
			"pointDrawn":  &graphql.Field{Type: graphql.Boolean},
			"radius":      &graphql.Field{Type: graphql.Float},
			"pendingDraw": &graphql.Field{Type: graphql.Boolean},
		},
	})

	bufferType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Buffer",
		Fields: graphql.Fields{
			"wkid":  &graphql.Field{Type: graphql.Int},
			"rings": &graphql.Field{Type: graphql.NewList(graphql.NewList(graphql.NewList(graphql.Float)))},
		},
	})

	archivedShapeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ArchivedShape",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"session_id":  &graphql.Field{Type: graphql.String},
			"kind":        &graphql.Field{Type: graphql.String},
			"wkid":        &graphql.Field{Type: graphql.Int},
			"vertices":    &graphql.Field{Type: graphql.NewList(pointType)},
			"captured_at": &graphql.Field{Type: graphql.DateTime},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	archivePageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ArchivePage",
		Fields: graphql.Fields{
			"shapes": &graphql.Field{Type: graphql.NewList(archivedShapeType)},
			"total":  &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"sessions": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Ids of live sketch sessions",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.List(), nil
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Recorded shapes and buffer state of a session",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					w, err := deps.Sessions.Get(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return sessionResult(w.State()), nil
				},
			},
			"buffer": &graphql.Field{
				Type:        bufferType,
				Description: "Geodesic buffer of a point, in the point's spatial reference",
				Args: graphql.FieldConfigArgument{
					"x":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"y":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"wkid":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: domain.WKIDWGS84},
					"radius": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.PointGeometry{
						X:                p.Args["x"].(float64),
						Y:                p.Args["y"].(float64),
						SpatialReference: domain.SpatialReference{WKID: p.Args["wkid"].(int)},
					}
					poly, err := deps.Buffers.ComputeBuffer(p.Context, pt, p.Args["radius"].(float64))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"wkid":  poly.SpatialReference.Normalized().WKID,
						"rings": rings(poly),
					}, nil
				},
			},
			"archivedShapes": &graphql.Field{
				Type:        archivePageType,
				Description: "Archived captures, newest first",
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"offset":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Archive == nil {
						return nil, errArchiveUnavailable
					}
					shapes, total, err := deps.Archive.List(p.Context,
						p.Args["session_id"].(string), p.Args["offset"].(int), p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"shapes": shapes, "total": total}, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createSession": &graphql.Field{
				Type:        sessionType,
				Description: "Start a sketch session",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					w, err := deps.Sessions.Create(p.Context)
					if err != nil {
						return nil, err
					}
					return sessionResult(w.State()), nil
				},
			},
			"destroySession": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Destroy a session and drop its pending draw",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Sessions.Destroy(p.Context, p.Args["id"].(string)); err != nil {
						return false, err
					}
					return true, nil
				},
			},
			"setRadius": &graphql.Field{
				Type:        sessionType,
				Description: "Change the buffer radius and redraw the active point",
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"radius":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					w, err := deps.Sessions.Get(p.Args["session_id"].(string))
					if err != nil {
						return nil, err
					}
					if err := w.RecomputeBuffer(p.Context, p.Args["radius"].(float64)); err != nil {
						return nil, err
					}
					return sessionResult(w.State()), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}

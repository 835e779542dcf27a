package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

// stringer resolves named string types (statuses, reasons) that the default
// resolver would hand through untyped.
func stringer(get func(src interface{}) string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		return get(p.Source), nil
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	sequencedStopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SequencedStop",
		Fields: graphql.Fields{
			"stop_number":            &graphql.Field{Type: graphql.Int},
			"delivery_id":            &graphql.Field{Type: graphql.String},
			"point":                  &graphql.Field{Type: geoPointType},
			"leg_distance_km":        &graphql.Field{Type: graphql.Float},
			"cumulative_distance_km": &graphql.Field{Type: graphql.Float},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteSummary",
		Fields: graphql.Fields{
			"total_distance_km":          &graphql.Field{Type: graphql.Float},
			"estimated_duration_minutes": &graphql.Field{Type: graphql.Float},
			"stop_count":                 &graphql.Field{Type: graphql.Int},
			"return_leg_km":              &graphql.Field{Type: graphql.Float},
		},
	})

	skippedType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SkippedDelivery",
		Fields: graphql.Fields{
			"delivery_id": &graphql.Field{Type: graphql.String},
			"reason": &graphql.Field{Type: graphql.String, Resolve: stringer(func(src interface{}) string {
				return string(src.(domain.SkippedDelivery).Reason)
			})},
		},
	})

	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "OptimizationResult",
		Fields: graphql.Fields{
			"route_id":           &graphql.Field{Type: graphql.String},
			"depot":              &graphql.Field{Type: geoPointType},
			"return_to_depot":    &graphql.Field{Type: graphql.Boolean},
			"stops":              &graphql.Field{Type: graphql.NewList(sequencedStopType)},
			"summary":            &graphql.Field{Type: summaryType},
			"skipped_deliveries": &graphql.Field{Type: graphql.NewList(skippedType)},
			"partial_coverage":   &graphql.Field{Type: graphql.Boolean},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"route_name": &graphql.Field{Type: graphql.String},
			"scheduled_date": &graphql.Field{Type: graphql.String, Resolve: stringer(func(src interface{}) string {
				return src.(*domain.Route).ScheduledDate.Format(domain.DateLayout)
			})},
			"driver_id":  &graphql.Field{Type: graphql.String},
			"vehicle_id": &graphql.Field{Type: graphql.String},
			"status": &graphql.Field{Type: graphql.String, Resolve: stringer(func(src interface{}) string {
				return string(src.(*domain.Route).Status)
			})},
			"total_distance_km":          &graphql.Field{Type: graphql.Float},
			"estimated_duration_minutes": &graphql.Field{Type: graphql.Float},
			"notes":                      &graphql.Field{Type: graphql.String},
			"optimization_method":        &graphql.Field{Type: graphql.String},
			"return_to_depot":            &graphql.Field{Type: graphql.Boolean},
			"depot":                      &graphql.Field{Type: geoPointType},
			"created_at":                 &graphql.Field{Type: graphql.DateTime},
		},
	})

	routeStopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteStop",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"route_id":    &graphql.Field{Type: graphql.String},
			"delivery_id": &graphql.Field{Type: graphql.String},
			"stop_number": &graphql.Field{Type: graphql.Int},
			"status": &graphql.Field{Type: graphql.String, Resolve: stringer(func(src interface{}) string {
				return string(src.(domain.RouteStop).Status)
			})},
			"point":                  &graphql.Field{Type: geoPointType},
			"leg_distance_km":        &graphql.Field{Type: graphql.Float},
			"cumulative_distance_km": &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"optimizeRoute": &graphql.Field{
				Type:        resultType,
				Description: "Preview an optimized route. Nothing is saved.",
				Args: graphql.FieldConfigArgument{
					"delivery_ids":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
					"driver_id":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"vehicle_id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"scheduled_date":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"return_to_depot": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw := p.Args["delivery_ids"].([]interface{})
					ids := make([]string, 0, len(raw))
					for _, v := range raw {
						ids = append(ids, fmt.Sprint(v))
					}
					return deps.Optimizer.Optimize(p.Context, domain.OptimizationRequest{
						DeliveryIDs:   ids,
						DriverID:      p.Args["driver_id"].(string),
						VehicleID:     p.Args["vehicle_id"].(string),
						ScheduledDate: p.Args["scheduled_date"].(string),
						ReturnToDepot: p.Args["return_to_depot"].(bool),
						SaveRoute:     false,
					})
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a route by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Routes.GetByID(p.Context, id)
				},
			},
			"routeStops": &graphql.Field{
				Type:        graphql.NewList(routeStopType),
				Description: "Stops of a route in visiting order",
				Args: graphql.FieldConfigArgument{
					"route_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					routeID := p.Args["route_id"].(string)
					return deps.Routes.ListStops(p.Context, routeID)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
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

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(result)
	}
}

package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/routeplanner/internal/core/domain"
	"github.com/samirrijal/routeplanner/internal/core/routing"
)

type optimizeResponse struct {
	*domain.OptimizationResult
	Geometry *geojson.FeatureCollection `json:"geometry,omitempty"`
}

// OptimizeRouteHandler sequences deliveries into a route. With save_route the
// route is persisted and its id returned; otherwise the result is a preview.
// ?geometry=true adds the GeoJSON of the sequenced path.
func OptimizeRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.OptimizationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		res, err := deps.Optimizer.Optimize(c.UserContext(), req)
		if err != nil {
			return domainError(c, err)
		}

		c.Set("Cache-Control", "no-store")
		out := optimizeResponse{OptimizationResult: res}
		if c.QueryBool("geometry") {
			out.Geometry = routing.Geometry(res.Depot, res.Stops, res.ReturnToDepot)
		}
		return c.JSON(out)
	}
}

// ListRoutesHandler lists routes filtered by date, driver and status.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var filter domain.RouteFilter
		if d := c.Query("date"); d != "" {
			t, err := time.Parse(domain.DateLayout, d)
			if err != nil {
				return errBadRequest(c, "date must be YYYY-MM-DD")
			}
			filter.ScheduledDate = &t
		}
		filter.DriverID = strings.TrimSpace(c.Query("driver_id"))
		if s := c.Query("status"); s != "" {
			filter.Status = domain.RouteStatus(strings.ToUpper(s))
			if !filter.Status.Valid() {
				return errBadRequest(c, "unknown status "+s)
			}
		}

		offset, limit := pageParams(c)
		routes, total, err := deps.Routes.List(c.UserContext(), filter, offset, limit)
		if err != nil {
			return domainError(c, err)
		}
		if routes == nil {
			routes = []domain.Route{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: routes, Pagination: pg})
	}
}

// GetRouteHandler returns a route by ID.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		route, err := deps.Routes.GetByID(c.UserContext(), id)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(route)
	}
}

// RouteStopsHandler returns the stops of a route in visiting order.
func RouteStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		stops, err := deps.Routes.ListStops(c.UserContext(), id)
		if err != nil {
			return domainError(c, err)
		}
		if stops == nil {
			stops = []domain.RouteStop{}
		}
		return c.JSON(stops)
	}
}

// RouteGeoJSONHandler renders a stored route as a GeoJSON FeatureCollection,
// starting from the depot the route was planned from.
func RouteGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		route, err := deps.Routes.GetByID(c.UserContext(), id)
		if err != nil {
			return domainError(c, err)
		}
		stops, err := deps.Routes.ListStops(c.UserContext(), id)
		if err != nil {
			return domainError(c, err)
		}

		depot := deps.Optimizer.Depot()
		if route.Depot != nil {
			depot = *route.Depot
		}
		fc := routing.Geometry(depot, routing.StopsFromRoute(stops), route.ReturnToDepot)
		data, err := fc.MarshalJSON()
		if err != nil {
			return errInternal(c, "encode geojson")
		}
		c.Set("Content-Type", "application/geo+json")
		return c.Send(data)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateRouteStatusHandler moves a route along its lifecycle.
func UpdateRouteStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req statusRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Status == "" {
			return errBadRequest(c, "status is required")
		}

		route, err := deps.Routes.UpdateStatus(c.UserContext(), c.Params("id"), domain.RouteStatus(strings.ToUpper(req.Status)))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(route)
	}
}

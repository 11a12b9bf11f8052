package handlers

import (
	"encoding/json"
	"net/http"
	"pickup-dispatch-service/internal/api/dto"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/services"

	"github.com/rs/zerolog"
)

type RouteHandler struct {
	Cache *services.RouteCache
}

// Lookup returns the route between two [lng, lat] points, from cache when
// possible.
func (h *RouteHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.CanLookupRoute() {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	var req dto.RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, ok := pair(w, r, "start", req.Start)
	if !ok {
		return
	}
	end, ok := pair(w, r, "end", req.End)
	if !ok {
		return
	}

	route, hit, err := h.Cache.GetRoute(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.RouteFrom(*route, hit)
	if len(route.Waypoints) >= 2 {
		if g, err := domain.WaypointsGeoJSON(route.Waypoints); err == nil {
			if raw, err := json.Marshal(g); err == nil {
				res.Geometry = raw
			}
		} else {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("route_key", route.Key).Msg("encode route geometry")
		}
	}
	writeJSON(w, r, http.StatusOK, res)
}

func pair(w http.ResponseWriter, r *http.Request, field string, v []float64) (domain.Coordinates, bool) {
	if len(v) != 2 {
		writeJSON(w, r, http.StatusBadRequest, errorBody{Error: field + " must be [lng, lat]", Field: field})
		return domain.Coordinates{}, false
	}
	return domain.Coordinates{Lon: v[0], Lat: v[1]}, true
}

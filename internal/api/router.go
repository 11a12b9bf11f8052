package api

import (
	"context"
	"net/http"
	"pickup-dispatch-service/internal/api/authn"
	"pickup-dispatch-service/internal/api/handlers"
	"pickup-dispatch-service/internal/ports"
	"pickup-dispatch-service/internal/services"

	"github.com/rs/zerolog"
)

// Deps is everything the HTTP layer needs. Metrics and Health are optional.
type Deps struct {
	Log        zerolog.Logger
	Auth       *authn.Authenticator
	Store      ports.Store
	Geo        *services.GeoIndex
	Dispatcher *services.Dispatcher
	Lifecycle  *services.LifecycleMachine
	Routes     *services.RouteCache
	Sweep      *services.InactivitySweep
	WindowDays int
	Health     func(ctx context.Context) error
	Metrics    http.Handler
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	health := &handlers.HealthHandler{Check: d.Health}
	pickups := &handlers.PickupHandler{
		Dispatcher: d.Dispatcher,
		Lifecycle:  d.Lifecycle,
		Pickups:    d.Store,
		Addresses:  d.Store,
		Users:      d.Store,
	}
	routes := &handlers.RouteHandler{Cache: d.Routes}
	centers := &handlers.CenterHandler{Centers: d.Store, Users: d.Store, Pickups: d.Store, Geo: d.Geo}
	admin := &handlers.AdminHandler{Sweep: d.Sweep, WindowDays: d.WindowDays}

	mux.HandleFunc("GET /health", health.Get)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, d.Auth.Middleware(h))
	}
	authed("POST /pickups", pickups.Create)
	authed("GET /pickups/history", pickups.History)
	authed("GET /pickups/saved-addresses", pickups.SavedAddresses)
	authed("GET /pickups/collector", pickups.CollectorQueue)
	authed("GET /pickups/{id}", pickups.Get)
	authed("POST /pickups/{id}/transition", pickups.Transition)
	authed("POST /pickups/{id}/complete", pickups.Complete)
	authed("POST /pickups/{id}/cancel", pickups.Cancel)

	authed("POST /routes", routes.Lookup)

	authed("POST /centers", centers.Create)
	authed("POST /centers/{id}/collectors", centers.RegisterCollector)
	authed("GET /centers/{id}/collectors", centers.ListCollectors)
	authed("GET /centers/{id}/pickups", centers.ListPickups)

	authed("GET /admin/inactive", admin.Inactive)
	authed("POST /admin/sweep", admin.RunSweep)

	return requestContext(d.Log, loggingMiddleware(recoverMiddleware(mux)))
}

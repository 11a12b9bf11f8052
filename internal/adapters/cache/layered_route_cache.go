package cache

import (
	"context"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/ports"

	"github.com/rs/zerolog"
)

// LayeredRouteCache reads the hot tier first and falls back to the durable
// tier, copying durable hits back into the hot tier. Writes go to both; the
// durable write decides the result.
type LayeredRouteCache struct {
	hot     ports.RouteStore
	durable ports.RouteStore
	log     zerolog.Logger
}

func NewLayeredRouteCache(hot, durable ports.RouteStore, log zerolog.Logger) *LayeredRouteCache {
	return &LayeredRouteCache{hot: hot, durable: durable, log: log}
}

func (c *LayeredRouteCache) GetRoute(ctx context.Context, key string) (*domain.Route, bool, error) {
	if r, ok, err := c.hot.GetRoute(ctx, key); err != nil {
		c.log.Warn().Err(err).Str("route_key", key).Msg("hot route cache read failed")
	} else if ok {
		return r, true, nil
	}

	r, ok, err := c.durable.GetRoute(ctx, key)
	if err != nil || !ok {
		return r, ok, err
	}
	if err := c.hot.PutRoute(ctx, r); err != nil {
		c.log.Warn().Err(err).Str("route_key", key).Msg("hot route cache backfill failed")
	}
	return r, true, nil
}

func (c *LayeredRouteCache) PutRoute(ctx context.Context, route *domain.Route) error {
	if err := c.hot.PutRoute(ctx, route); err != nil {
		c.log.Warn().Err(err).Str("route_key", route.Key).Msg("hot route cache write failed")
	}
	return c.durable.PutRoute(ctx, route)
}

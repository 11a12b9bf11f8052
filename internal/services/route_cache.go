package services

import (
	"context"
	"errors"
	"fmt"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/platform/obs"
	"pickup-dispatch-service/internal/ports"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRouteKeyPrecision quantizes endpoints to about one metre.
const DefaultRouteKeyPrecision = 5

type RouteCacheConfig struct {
	Precision       int
	ProviderTimeout time.Duration
}

// RouteCache memoizes routing provider responses under quantized endpoint
// keys. Concurrent misses for one key may each call the provider; the store
// keeps whichever write lands last.
type RouteCache struct {
	store    ports.RouteStore
	provider ports.RouteProvider
	cfg      RouteCacheConfig
	metrics  *obs.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewRouteCache(store ports.RouteStore, provider ports.RouteProvider, cfg RouteCacheConfig, metrics *obs.Metrics, log zerolog.Logger) *RouteCache {
	if cfg.Precision <= 0 {
		cfg.Precision = DefaultRouteKeyPrecision
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 8 * time.Second
	}
	return &RouteCache{store: store, provider: provider, cfg: cfg, metrics: metrics, log: log, now: time.Now}
}

func (c *RouteCache) Key(start, end domain.Coordinates) string {
	return domain.RouteKey(start, end, c.cfg.Precision)
}

// GetRoute returns the stored route for start/end or fetches, stores and
// returns it. hit reports whether the provider was skipped. Provider failures
// wrap domain.ErrRouteUnavailable and are never stored.
func (c *RouteCache) GetRoute(ctx context.Context, start, end domain.Coordinates) (route *domain.Route, hit bool, err error) {
	defer obs.Time(ctx, "route_cache.get")(&err)

	if err := start.Validate(); err != nil {
		return nil, false, domain.NewValidationError("start", err.Error())
	}
	if err := end.Validate(); err != nil {
		return nil, false, domain.NewValidationError("end", err.Error())
	}

	key := c.Key(start, end)
	cached, ok, err := c.store.GetRoute(ctx, key)
	if err != nil {
		// A broken cache degrades to a provider call.
		c.log.Warn().Err(err).Str("route_key", key).Msg("route cache read failed")
		c.metrics.RouteLookup("error")
	} else if ok {
		c.metrics.RouteLookup("hit")
		return cached, true, nil
	} else {
		c.metrics.RouteLookup("miss")
	}

	pctx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
	defer cancel()

	began := time.Now()
	fetched, err := c.provider.Directions(pctx, start.Quantize(c.cfg.Precision), end.Quantize(c.cfg.Precision))
	if err == nil && fetched == nil {
		err = errors.New("provider returned no route")
	}
	if err != nil {
		c.metrics.ProviderCall("error", time.Since(began))
		return nil, false, fmt.Errorf("get route %s: %w: %w", key, domain.ErrRouteUnavailable, err)
	}
	c.metrics.ProviderCall("ok", time.Since(began))

	fetched.Key = key
	fetched.Start = start.Quantize(c.cfg.Precision)
	fetched.End = end.Quantize(c.cfg.Precision)
	if fetched.CreatedAt.IsZero() {
		fetched.CreatedAt = c.now().UTC()
	}

	if err := c.store.PutRoute(ctx, fetched); err != nil {
		c.log.Warn().Err(err).Str("route_key", key).Msg("route cache write failed")
	}
	return fetched, false, nil
}

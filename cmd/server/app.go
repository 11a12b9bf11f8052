package main

import (
	"context"
	"errors"
	"fmt"
	"pickup-dispatch-service/internal/adapters/cache"
	"pickup-dispatch-service/internal/adapters/memory"
	"pickup-dispatch-service/internal/adapters/notify"
	"pickup-dispatch-service/internal/adapters/repositories"
	"pickup-dispatch-service/internal/adapters/routing"
	"pickup-dispatch-service/internal/config"
	"pickup-dispatch-service/internal/platform/db"
	"pickup-dispatch-service/internal/platform/logger"
	"pickup-dispatch-service/internal/platform/obs"
	"pickup-dispatch-service/internal/ports"
	"pickup-dispatch-service/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// app is the composition root: concrete adapters behind ports, plus the
// services built on them.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *obs.Metrics

	store    ports.Store
	health   func(ctx context.Context) error
	geo      *services.GeoIndex
	routes   *services.RouteCache
	resolver *services.AddressResolver
	notifier ports.Notifier

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{
		cfg:      cfg,
		log:      logger.New(logger.Options{Env: cfg.Environment, Level: cfg.Log.Level, File: cfg.Log.File}),
		registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if a.metrics, err = obs.NewMetrics(a.registry); err != nil {
		return nil, err
	}

	var (
		durable  ports.RouteStore
		geocodes ports.GeocodeStore
	)
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pg, err := db.Open(ctx, cfg.DB.URL, cfg.DB.MaxConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		if err := repositories.InitSchema(ctx, pg.DB); err != nil {
			return nil, err
		}
		a.store = repositories.NewPostgresStore(pg.DB)
		a.health = pg.PingContext
		durable = cache.NewSQLRouteCache(pg.DB)
		geocodes = cache.NewSQLGeocodeCache(pg.DB)
	default:
		mem := memory.NewStore()
		if cfg.DB.SeedPath != "" {
			if err := repositories.SeedFromJSON(ctx, mem, cfg.DB.SeedPath); err != nil {
				return nil, err
			}
		}
		a.store = mem
		durable = memory.NewRouteStore()
		geocodes = memory.NewGeocodeStore()
	}

	routeStore := durable
	if cfg.Routes.RedisURL != "" {
		rdb, err := cache.OpenRedis(ctx, cfg.Routes.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		hot := cache.NewRedisRouteCache(rdb, cfg.Routes.RedisTTL)
		routeStore = cache.NewLayeredRouteCache(hot, durable, logger.Component(a.log, "route_cache"))
	}

	provider, err := routing.NewORSRouteProvider(routing.ORSConfig{
		APIKey:  cfg.ORS.APIKey,
		BaseURL: cfg.ORS.BaseURL,
		Profile: cfg.ORS.Profile,
		Timeout: cfg.ORS.Timeout,
		Country: cfg.ORS.Country,
	})
	if err != nil {
		return nil, err
	}
	a.routes = services.NewRouteCache(routeStore, provider, services.RouteCacheConfig{
		Precision:       cfg.Routes.KeyPrecision,
		ProviderTimeout: cfg.ORS.Timeout,
	}, a.metrics, logger.Component(a.log, "route_cache"))
	a.resolver = services.NewAddressResolver(geocodes, provider, logger.Component(a.log, "geocode"))

	if cfg.Notify.AMQPURL != "" {
		n, err := notify.DialAMQP(cfg.Notify.AMQPURL, cfg.Notify.Exchange)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, n.Close)
		a.notifier = n
	} else {
		a.notifier = notify.NewLogNotifier(logger.Component(a.log, "notify"))
	}

	if a.geo, err = services.LoadGeoIndex(ctx, a.store); err != nil {
		return nil, err
	}
	a.log.Info().
		Str("backend", cfg.StoreBackend).
		Int("centers", a.geo.Len()).
		Bool("redis", cfg.Routes.RedisURL != "").
		Bool("amqp", cfg.Notify.AMQPURL != "").
		Msg("adapters ready")
	return a, nil
}

func (a *app) sweep() *services.InactivitySweep {
	return services.NewInactivitySweep(a.store, a.notifier, a.metrics, logger.Component(a.log, "sweep"))
}

// Close releases adapters in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

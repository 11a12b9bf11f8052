package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"pickup-dispatch-service/internal/api"
	"pickup-dispatch-service/internal/api/authn"
	"pickup-dispatch-service/internal/platform/logger"
	"pickup-dispatch-service/internal/services"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var noScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the periodic inactivity sweep",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noScheduler, "no-sweep", false, "do not run the periodic inactivity sweep")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Error().Err(err).Msg("shutdown")
		}
	}()

	dispatcher := services.NewDispatcher(a.store, a.geo,
		services.WithMaxDistance(cfg.DispatchMaxDistance),
		services.WithAddressResolver(a.resolver),
		services.WithDispatchMetrics(a.metrics),
		services.WithDispatchLogger(logger.Component(a.log, "dispatch")),
	)
	lifecycle := services.NewLifecycleMachine(a.store, a.metrics, logger.Component(a.log, "lifecycle"))
	sweep := a.sweep()

	router := api.NewRouter(api.Deps{
		Log:        logger.Component(a.log, "http"),
		Auth:       authn.New(cfg.JWTSecret),
		Store:      a.store,
		Geo:        a.geo,
		Dispatcher: dispatcher,
		Lifecycle:  lifecycle,
		Routes:     a.routes,
		Sweep:      sweep,
		WindowDays: cfg.Sweep.WindowDays,
		Health:     a.health,
		Metrics:    promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
	})

	// Timeouts allow for a cold route cache waiting on the routing provider.
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.ORS.Timeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if !noScheduler {
		sched := services.NewSweepScheduler(sweep, cfg.Sweep.Interval, cfg.Sweep.WindowDays, logger.Component(a.log, "scheduler"))
		g.Go(func() error { return sched.Start(gctx) })
	}

	if err := g.Wait(); err != nil {
		a.log.Error().Err(err).Msg("server stopped")
		return err
	}
	a.log.Info().Msg("server stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/storehq/storefront/internal/cart"
	"github.com/storehq/storefront/internal/catalog"
	"github.com/storehq/storefront/internal/httpapi"
	"github.com/storehq/storefront/internal/inventory"
	"github.com/storehq/storefront/internal/orders"
	"github.com/storehq/storefront/migrations"
	"github.com/storehq/storefront/pkg/config"
	"github.com/storehq/storefront/pkg/logger"
	"github.com/storehq/storefront/pkg/postgres"
	"github.com/storehq/storefront/pkg/shutdown"
	"github.com/storehq/storefront/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service: cfg.ServiceName,
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	telOpts := telemetry.Options{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
	}
	tp, err := telemetry.InitTracer(ctx, telOpts)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("tracer shutdown", slog.Any("err", err))
		}
	}()

	mp, err := telemetry.InitMetrics(ctx, telOpts)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Error("meter shutdown", slog.Any("err", err))
		}
	}()

	pool, err := postgres.Connect(ctx, cfg.DatabaseDSN(), log)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, migrations.Schema); err != nil {
		return err
	}

	beginner := postgres.PoolBeginner{Pool: pool}

	gate := inventory.NewGate(pool)

	catalogRepo := catalog.NewPostgresRepository(pool, beginner)
	catalogUC := catalog.NewUseCase(catalogRepo)

	cartRepo := cart.NewPostgresRepository(pool, beginner)
	cartUC := cart.NewUseCase(cartRepo, gate, catalogUC)

	ordersRepo := orders.NewPostgresRepository(pool, beginner)
	ordersUC, err := orders.NewUseCase(
		ordersRepo,
		gate,
		log,
		tp.Tracer("orders"),
		mp.Meter("orders"),
	)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(cfg.ServiceName, httpapi.Handlers{
		Catalog: catalog.NewHandler(catalogUC),
		Cart:    cart.NewHandler(cartUC),
		Orders:  orders.NewHandler(ordersUC),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutdown requested")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("bye")
	return nil
}

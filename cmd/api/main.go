package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/healthreport/internal/app"
	"github.com/hamed0406/healthreport/internal/config"
	"github.com/hamed0406/healthreport/internal/httpapi"
	apimw "github.com/hamed0406/healthreport/internal/httpapi/middleware"
	"github.com/hamed0406/healthreport/internal/logging"
	"github.com/hamed0406/healthreport/internal/metrics"
	"github.com/hamed0406/healthreport/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("api_exit", zap.Error(err))
		logger.Sync()
		log.Fatal(err)
	}
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := metrics.New(store, logger)
	rep := report.New(engine, logger, report.Options{
		Services:    cfg.Services,
		AvgWindow:   cfg.AvgWindow,
		MinServices: cfg.MinServices,
	})
	api := httpapi.NewServer(logger, store, engine, rep)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           http.TimeoutHandler(api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst), cfg.QueryTimeout, `{"error":"timeout"}`),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("api_shutdown")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

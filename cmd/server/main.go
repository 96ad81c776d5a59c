package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/config"
	"github.com/mamadbah2/hospital-reports/internal/metrics"
	"github.com/mamadbah2/hospital-reports/internal/repository/mongodb"
	"github.com/mamadbah2/hospital-reports/internal/scheduler"
	"github.com/mamadbah2/hospital-reports/internal/server/handlers"
	"github.com/mamadbah2/hospital-reports/internal/server/router"
	"github.com/mamadbah2/hospital-reports/internal/service/dispatch"
	"github.com/mamadbah2/hospital-reports/internal/service/rendering"
	reportingsvc "github.com/mamadbah2/hospital-reports/internal/service/reporting"
	"github.com/mamadbah2/hospital-reports/pkg/clients/mailer"
	"github.com/mamadbah2/hospital-reports/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 20*time.Second)
	mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named(baseLogger, "repo.mongodb"))
	cancelConnect()
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	mailGateway, err := mailer.New(cfg.Mail, logger.Named(baseLogger, "client.mailer"))
	if err != nil {
		baseLogger.Fatal("failed to init mail gateway", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	reportingSvc := reportingsvc.NewService(mongoRepo, logger.Named(baseLogger, "svc.reporting"))
	dispatcher := dispatch.NewDispatcher(dispatch.Dependencies{
		Schedules:  mongoRepo,
		Aggregator: reportingSvc,
		Renderers:  rendering.NewRegistry(logger.Named(baseLogger, "svc.rendering")),
		Mail:       mailGateway,
		Metrics:    metrics.New(registry),
		Location:   loc,
	}, logger.Named(baseLogger, "svc.dispatch"))

	triggerHandler := handlers.NewTriggerHandler(dispatcher, cfg.Server.CronSecret, cfg.Reporting.RunTimeout, logger.Named(baseLogger, "handlers.trigger"))
	engine := router.New(triggerHandler, registry, logger.Named(baseLogger, "router"))

	sched := scheduler.NewScheduler(dispatcher, cfg.Reporting.CronSchedule, loc, cfg.Reporting.RunTimeout, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Reporting.RunTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

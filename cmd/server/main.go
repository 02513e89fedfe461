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

	"github.com/mamadbah2/feedengine/internal/cache"
	"github.com/mamadbah2/feedengine/internal/config"
	"github.com/mamadbah2/feedengine/internal/metrics"
	"github.com/mamadbah2/feedengine/internal/repository/mongodb"
	"github.com/mamadbah2/feedengine/internal/repository/sheets"
	"github.com/mamadbah2/feedengine/internal/scheduler"
	"github.com/mamadbah2/feedengine/internal/server/handlers"
	"github.com/mamadbah2/feedengine/internal/server/router"
	batchsvc "github.com/mamadbah2/feedengine/internal/service/batches"
	categorysvc "github.com/mamadbah2/feedengine/internal/service/categories"
	conversionsvc "github.com/mamadbah2/feedengine/internal/service/conversions"
	factorsvc "github.com/mamadbah2/feedengine/internal/service/factors"
	insightsvc "github.com/mamadbah2/feedengine/internal/service/insights"
	reportingsvc "github.com/mamadbah2/feedengine/internal/service/reporting"
	"github.com/mamadbah2/feedengine/internal/service/snapshot"
	"github.com/mamadbah2/feedengine/pkg/clients/feedcatalog"
	"github.com/mamadbah2/feedengine/pkg/clients/registry"
	whatsappclient "github.com/mamadbah2/feedengine/pkg/clients/whatsapp"
	"github.com/mamadbah2/feedengine/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics, err := metrics.New(promRegistry)
	if err != nil {
		baseLogger.Fatal("failed to init metrics", zap.Error(err))
	}

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	batchCache := cache.New(cfg.Cache.TTL, engineMetrics, baseLogger.Named("cache"))
	reader := snapshot.NewReader(registry.NewClient(cfg.Registry), engineMetrics, baseLogger.Named("svc.snapshot"))
	catalog := feedcatalog.NewClient(cfg.FeedCatalog)

	conversionSvc := conversionsvc.NewService(mongoRepo, baseLogger.Named("svc.conversions"))
	categorySvc := categorysvc.NewService(mongoRepo, reader, batchCache, baseLogger.Named("svc.categories"))
	batchSvc := batchsvc.NewService(batchsvc.Deps{
		Batches:    mongoRepo,
		Links:      mongoRepo,
		Categories: mongoRepo,
		Animals:    reader,
		Converter:  conversionSvc,
		Cache:      batchCache,
		Metrics:    engineMetrics,
	}, baseLogger.Named("svc.batches"))
	factorSvc := factorsvc.NewService(mongoRepo, mongoRepo, reader, batchCache, baseLogger.Named("svc.factors"))
	insightSvc := insightsvc.NewService(mongoRepo, batchSvc, factorSvc, catalog, batchCache, engineMetrics, baseLogger.Named("svc.insights"))

	reportOpts := reportingsvc.Options{}
	if loc, err := time.LoadLocation(cfg.Reporting.Timezone); err == nil {
		reportOpts.Location = loc
	}
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		reportOpts.Sheet = sheetsRepo
	} else {
		baseLogger.Warn("google sheets export disabled")
	}
	if cfg.WhatsApp.Enabled() {
		reportOpts.Notifier = whatsappclient.NewClient(cfg.WhatsApp)
		reportOpts.Recipient = cfg.WhatsApp.ReportRecipient
		baseLogger.Info("whatsapp daily summary enabled")
	}
	reportingSvc := reportingsvc.NewService(mongoRepo, mongoRepo, insightSvc, reportOpts, baseLogger.Named("svc.reporting"))

	engine := router.New(router.Handlers{
		Categories:  handlers.NewCategoryHandler(categorySvc, baseLogger.Named("handlers.categories")),
		Batches:     handlers.NewBatchHandler(batchSvc, insightSvc, baseLogger.Named("handlers.batches")),
		Factors:     handlers.NewFactorHandler(factorSvc, baseLogger.Named("handlers.factors")),
		Conversions: handlers.NewConversionHandler(conversionSvc, baseLogger.Named("handlers.conversions")),
		Animals:     handlers.NewAnimalHandler(batchCache, baseLogger.Named("handlers.animals")),
	}, promRegistry, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, batchCache, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
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

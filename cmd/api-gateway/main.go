package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/api/swagger"
	"github.com/noah-isme/dept-slot-api/internal/handler"
	internalmiddleware "github.com/noah-isme/dept-slot-api/internal/middleware"
	"github.com/noah-isme/dept-slot-api/internal/repository"
	"github.com/noah-isme/dept-slot-api/internal/service"
	"github.com/noah-isme/dept-slot-api/pkg/cache"
	"github.com/noah-isme/dept-slot-api/pkg/config"
	"github.com/noah-isme/dept-slot-api/pkg/database"
	"github.com/noah-isme/dept-slot-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/dept-slot-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/dept-slot-api/pkg/middleware/requestid"
)

// @title Department Slot API
// @version 1.0.0
// @description Teacher slot allocation for university departments
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	policy, err := cfg.Slots.Policy()
	if err != nil {
		logr.Fatal("invalid slot rules", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	checks := map[string]handler.Pinger{"postgres": db}
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, summary cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Summary.CacheTTL, logr, cfg.Summary.CacheEnabled && cacheRepo != nil)

	slotRepo := repository.NewSlotRepository(db)
	assignmentRepo := repository.NewTeacherSlotRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)

	summarySvc := service.NewSummaryService(deptRepo, teacherRepo, assignmentRepo, slotRepo, policy, cacheSvc, metrics, logr)
	refresher := service.NewSummaryRefresher(summarySvc, service.SummaryRefresherConfig{
		Workers: cfg.Summary.RefreshWorkers,
		Metrics: metrics,
		Logger:  logr,
	})
	if !cacheSvc.Enabled() {
		refresher = nil
	}
	refresher.Start(ctx)
	defer refresher.Stop()

	slotSvc := service.NewSlotService(slotRepo, assignmentRepo, teacherRepo, service.SlotServiceConfig{
		Policy:    policy,
		Cache:     cacheSvc,
		Refresher: refresher,
		Metrics:   metrics,
		Validator: validator.New(),
		Logger:    logr,
	})
	if _, err := slotSvc.InitializeDefaults(ctx); err != nil {
		logr.Warn("default slots not initialized", zap.Error(err))
	}
	exportSvc := service.NewExportService(summarySvc, nil, nil, logr)
	rosterSvc := service.NewRosterService(teacherRepo, deptRepo, logr)
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		swagger.SetBasePath(cfg.APIPrefix)
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r.Group(cfg.APIPrefix), handler.Handlers{
		Slots:   handler.NewSlotHandler(slotSvc, summarySvc, exportSvc),
		Roster:  handler.NewRosterHandler(rosterSvc),
		Metrics: metricsHandler,
		Audit:   logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

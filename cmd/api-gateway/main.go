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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/etp-gateway/api/swagger"
	"github.com/noah-isme/etp-gateway/internal/handler"
	internalmiddleware "github.com/noah-isme/etp-gateway/internal/middleware"
	"github.com/noah-isme/etp-gateway/internal/repository"
	"github.com/noah-isme/etp-gateway/internal/service"
	"github.com/noah-isme/etp-gateway/pkg/baas"
	"github.com/noah-isme/etp-gateway/pkg/cache"
	"github.com/noah-isme/etp-gateway/pkg/config"
	"github.com/noah-isme/etp-gateway/pkg/database"
	"github.com/noah-isme/etp-gateway/pkg/logger"
	corsmiddleware "github.com/noah-isme/etp-gateway/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/etp-gateway/pkg/middleware/requestid"
	"github.com/noah-isme/etp-gateway/pkg/storage"
)

// @title English Teaching Platform Gateway
// @version 1.0.0
// @description Browser-facing API over the hosted auth and data backend
// @BasePath /
// @schemes http https

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()
	backend := baas.New(cfg.BaaS, baas.WithLogger(logr), baas.WithObserver(metricsSvc.ObserveRemoteCall))
	checks := []handler.ReadinessCheck{{Name: "backend", Check: backend.Health}}

	stores := repository.NewRESTStores(backend)
	if cfg.DataBackend == config.DataBackendPostgres {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		stores = repository.NewPostgresStores(db)
		checks = append(checks, handler.ReadinessCheck{Name: "postgres", Check: db.PingContext})
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close() //nolint:errcheck
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: cache.Pinger(redisClient)})
	}

	var sessions repository.SessionStore
	if redisClient != nil {
		sessions = repository.NewRedisSessionRepository(redisClient)
	} else {
		logr.Warn("redis disabled, sessions are kept in memory and lost on restart")
		sessions = repository.NewMemorySessionRepository()
	}

	validate := validator.New()
	events := service.NewSessionEvents(cfg.Reconciler.BufferSize, logr)
	authSvc := service.NewAuthService(backend, sessions, events, validate, logr, service.AuthConfig{
		SessionTTL:     cfg.Session.TTL,
		RefreshLeeway:  cfg.Session.RefreshLeeway,
		JWTSecret:      cfg.BaaS.JWTSecret,
		OAuthProviders: cfg.BaaS.OAuthProviders,
		OAuthRedirect:  cfg.BaaS.OAuthRedirect,
		OAuthStateTTL:  10 * time.Minute,
	})

	listCache := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.ListCache.TTL, logr, cfg.ListCache.Enabled && redisClient != nil)

	provider := service.NewSessionProvider(events, service.NewReconciler(stores.Profiles, logr), metricsSvc, logr, service.ProviderConfig{
		Workers:    cfg.Reconciler.Workers,
		BufferSize: cfg.Reconciler.BufferSize,
	})
	provider.InvalidateListings(listCache)
	provider.Start(ctx)
	defer provider.Stop()

	courseSvc := service.NewCourseService(stores.Courses, stores.Profiles, listCache, logr)
	teacherSvc := service.NewTeacherService(stores.Profiles, stores.Courses, listCache, logr)
	enrollmentSvc := service.NewEnrollmentService(stores.Enrollments, service.NewExportService(nil, nil), logr)
	contentSvc := service.NewContentService()

	fileStore, err := storage.NewLocalStorage(cfg.Files.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare file storage", zap.Error(err))
	}
	fileSvc := service.NewFileService(fileStore, storage.NewSignedURLSigner(cfg.Files.SignedURLSecret, cfg.Files.SignedURLTTL), service.FileConfig{
		MaxSizeBytes: cfg.Files.MaxFileSizeBytes,
		APIPrefix:    cfg.APIPrefix,
	}, logr)
	if cfg.Files.Retention > 0 {
		go sweepFiles(ctx, fileStore, cfg.Files.Retention, logr)
	}

	cookie := internalmiddleware.CookieConfig{Name: cfg.Session.CookieName, TTL: cfg.Session.TTL, Secure: cfg.Session.Secure}

	authHandler := handler.NewAuthHandler(authSvc, provider, cookie)
	profileHandler := handler.NewProfileHandler(provider, enrollmentSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, enrollmentSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	contentHandler := handler.NewContentHandler(contentSvc, validate)
	fileHandler := handler.NewFileHandler(fileSvc, validate, cfg.Files.MaxFileSizeBytes)
	healthHandler := handler.NewHealthHandler(metricsSvc, provider, checks...)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", healthHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	api.Use(internalmiddleware.Session(authSvc, provider, cookie, logr))

	api.GET("/home", contentHandler.Home)
	api.GET("/lessons", contentHandler.Lessons)
	api.POST("/lessons/enroll", contentHandler.EnrollLesson)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.GET("/oauth/:provider", authHandler.OAuthStart)
	auth.GET("/callback", authHandler.OAuthCallback)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/session", authHandler.Session)

	api.GET("/courses", courseHandler.List)
	api.GET("/courses/:id", courseHandler.Get)
	api.POST("/courses/:id/enroll", courseHandler.Enroll)
	api.GET("/teachers", teacherHandler.List)
	api.GET("/teachers/:id", teacherHandler.Get)
	api.GET("/files/download", fileHandler.Download)

	secured := api.Group("")
	secured.Use(internalmiddleware.RequireSession())
	secured.GET("/profile", profileHandler.Get)
	secured.GET("/profile/enrollments/export", profileHandler.ExportEnrollments)
	secured.DELETE("/enrollments/:id", enrollmentHandler.Delete)
	secured.POST("/files", fileHandler.Upload)
	secured.GET("/files/:name", fileHandler.View)
	secured.PUT("/files/:name", fileHandler.Update)
	secured.DELETE("/files/:name", fileHandler.Clear)
	secured.POST("/files/:name/link", fileHandler.Link)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("data_backend", cfg.DataBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func sweepFiles(ctx context.Context, store *storage.LocalStorage, retention time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupOlderThan(retention)
			if err != nil {
				logr.Warn("file sweep failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("file sweep removed stale files", zap.Int("count", len(removed)))
			}
		}
	}
}

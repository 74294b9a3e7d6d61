package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appnotification "github.com/schoolms/backend/internal/application/notification"
	"github.com/schoolms/backend/internal/application/tenantctx"
	"github.com/schoolms/backend/internal/domain/identity"
	"github.com/schoolms/backend/internal/domain/notification"
	"github.com/schoolms/backend/internal/infrastructure/auth"
	"github.com/schoolms/backend/internal/infrastructure/cache"
	"github.com/schoolms/backend/internal/infrastructure/config"
	"github.com/schoolms/backend/internal/infrastructure/event"
	"github.com/schoolms/backend/internal/infrastructure/logger"
	"github.com/schoolms/backend/internal/infrastructure/persistence"
	"github.com/schoolms/backend/internal/infrastructure/push"
	"github.com/schoolms/backend/internal/interfaces/http/handler"
	"github.com/schoolms/backend/internal/interfaces/http/middleware"
	"github.com/schoolms/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting school management backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Durable tenant cache; falls back to in-memory when Redis is absent
	// (resolution still works, it just loses the restart shortcut)
	tenantCache := newTenantCache(cfg, log)

	// Event bus carries session lifecycle events; sign-out is handled
	// synchronously so the tenant context is cleared before the publisher
	// regains control
	bus := event.NewInMemoryEventBus(log)
	sessionProvider := auth.NewSessionProvider(bus)

	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	assignmentRepo := persistence.NewGormAssignmentRepository(db.DB)

	resolver := tenantctx.NewResolver(assignmentRepo, tenantRepo, log)
	tenantContext := tenantctx.NewContext(sessionProvider, resolver, tenantCache, cfg.Tenant, log)
	bus.Subscribe(tenantContext, tenantContext.EventTypes()...)

	// Tenant-scoped repositories follow the tenant context; before
	// resolution they fail closed
	notificationRepo := persistence.NewTenantNotificationRepository(db.DB, tenantContext)
	accountLinkRepo := persistence.NewTenantAccountLinkRepository(db.DB, tenantContext)

	var sender notification.PushSender
	if cfg.Push.Enabled {
		sender = push.NewRestySender(cfg.Push, log)
	} else {
		sender = push.NewNoopSender(log)
	}
	fanout := appnotification.NewFanoutService(notificationRepo, accountLinkRepo, sender, cfg.Notification, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	// One optimistic resolution pass at startup; failure leaves the
	// process in degraded mode and sign-in retriggers resolution
	loader := tenantctx.NewStartupLoader(tenantContext, cfg.Tenant, log)
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), cfg.Tenant.ResolveTimeout)
	loader.Load(startupCtx)
	cancelStartup()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSOrigins
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(corsCfg),
	)

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/api/v1/health", "/api/v1/auth/login"},
		Logger:     log,
	})
	engine.Use(authMiddleware)

	tenantGuard := middleware.RequireTenant(tenantContext)

	r := router.NewRouter(engine)
	r.Register(handler.NewHealthHandler(db, version)).
		Register(handler.NewSessionHandler(jwtService, sessionProvider, tenantContext, log)).
		Register(handler.NewTenantAdminHandler(tenantRepo, assignmentRepo, log)).
		Register(handler.NewNotificationHandler(fanout, notificationRepo, tenantGuard, log))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

// newTenantCache builds the durable tenant cache. Redis is preferred; an
// unreachable Redis degrades to in-memory rather than blocking startup.
func newTenantCache(cfg *config.Config, log *zap.Logger) identity.TenantCache {
	redisCache, err := cache.NewRedisTenantCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Tenant.CacheKey)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory tenant cache", zap.Error(err))
		return cache.NewInMemoryTenantCache()
	}
	log.Info("Redis tenant cache connected", zap.String("addr", cfg.Redis.Addr()))
	return redisCache
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sims-enrollment-api/api/swagger"
	"github.com/noah-isme/sims-enrollment-api/internal/handler"
	"github.com/noah-isme/sims-enrollment-api/internal/middleware"
	"github.com/noah-isme/sims-enrollment-api/internal/repository"
	"github.com/noah-isme/sims-enrollment-api/internal/service"
	"github.com/noah-isme/sims-enrollment-api/pkg/cache"
	"github.com/noah-isme/sims-enrollment-api/pkg/config"
	"github.com/noah-isme/sims-enrollment-api/pkg/database"
	"github.com/noah-isme/sims-enrollment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sims-enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sims-enrollment-api/pkg/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logr)
		},
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func serve(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	checks := map[string]handler.Pinger{"postgres": db}

	var (
		redisClient *redis.Client
		locker      cache.Locker = cache.NewLocalLocker()
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		locker = cache.NewRedisLocker(redisClient, "")
		checks["redis"] = redisPinger{client: redisClient}
	} else {
		logr.Warn("redis disabled, write locks are process-local")
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	dependencyRepo := repository.NewDependencyRepository(db)

	deletionPolicy := service.NewDeletionPolicy(dependencyRepo)
	sectionSvc := service.NewSectionService(sectionRepo, courseRepo, deletionPolicy, cacheSvc, locker, cfg.Locks.TTL, cfg.Academic, metrics, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, sectionRepo, studentRepo, courseRepo, cacheSvc, locker, cfg.Locks.TTL, metrics, validate, logr)
	gradeSvc := service.NewGradeService(enrollmentRepo, metrics, validate, logr)
	exportSvc := service.NewExportService(enrollmentRepo, sectionSvc, nil, nil, logr)
	catalogSvc := service.NewCatalogService(cacheSvc, cfg.Academic)
	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	ops := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), middleware.JWT(authSvc), handler.Handlers{
		Catalog:     handler.NewCatalogHandler(catalogSvc),
		Sections:    handler.NewSectionHandler(sectionSvc, exportSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Grades:      handler.NewGradeHandler(gradeSvc),
		Deletion:    handler.NewDeletionHandler(deletionPolicy),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"scorm_trends_backend/internal/config"
	"scorm_trends_backend/internal/controller"
	"scorm_trends_backend/internal/repository"
	"scorm_trends_backend/internal/service"
	"scorm_trends_backend/internal/util"
	"scorm_trends_backend/pkg/configwatcher"
	"scorm_trends_backend/pkg/database"
	"scorm_trends_backend/pkg/logger"
	"scorm_trends_backend/pkg/monitoring"
	"scorm_trends_backend/pkg/security"
	"scorm_trends_backend/pkg/tracing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Trends          *service.TrendsService
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	scorm       *repository.ScormRepository
	track       *repository.TrackRepository
	capability  *repository.CapabilityRepository
	reportCache *repository.ReportCacheRepository
}

type services struct {
	auth   *service.AuthService
	trends *service.TrendsService
}

type controllers struct {
	auth   *controller.AuthController
	trends *controller.TrendsController
	health *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	repos := &repositories{
		user:       repository.NewUserRepository(db),
		scorm:      repository.NewScormRepository(db),
		track:      repository.NewTrackRepository(db),
		capability: repository.NewCapabilityRepository(db),
	}
	if rdb != nil {
		repos.reportCache = repository.NewReportCacheRepository(rdb)
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	// 未启用 Redis 时缓存保持 nil 接口
	var cache service.ReportCache
	if repos.reportCache != nil {
		cache = repos.reportCache
	}

	return &services{
		auth: service.NewAuthService(repos.user, cfg),
		trends: service.NewTrendsService(
			repos.scorm,
			repos.track,
			service.NewAllowedUserResolver(repos.capability),
			cache,
			cfg.Report,
		),
	}
}

func (a *App) initControllers(s *services) (*controllers, error) {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return nil, err
	}
	return &controllers{
		auth:   controller.NewAuthController(s.auth),
		trends: controller.NewTrendsController(s.trends),
		health: controller.NewHealthController(sqlDB),
	}, nil
}

func (a *App) setupMiddlewares(ctx context.Context, router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewApp 初始化日志、数据库、Redis 和各层依赖。ctx 用于后台协程的生命周期
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == util.ServerModeDebug)
	if err != nil {
		return nil, err
	}

	if cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb)
	svcs := app.initServices(repos, cfg)
	app.Trends = svcs.trends
	ctrls, err := app.initControllers(svcs)
	if err != nil {
		return nil, err
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("scorm-trends", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		app.tracer = tp
	}

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(ctx, router, cfg)
	app.registerRoutes(router, ctrls, cfg)

	// 报表参数支持热更新
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		svcs.trends.ApplyConfig(newCfg.Report)
	})

	return app, nil
}

// WatchConfig 配置文件存在时启动热更新
func (a *App) WatchConfig(ctx context.Context) {
	if a.Config.FilePath == "" {
		return
	}
	go func() {
		err := configwatcher.WatchConfig(ctx, a.Config.FilePath, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Error("config watcher stopped", zap.Error(err))
		}
	}()
}

// Close 释放数据库、Redis 和 tracer
func (a *App) Close() {
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Log.Sync()
}

// Run 阻塞直到 ctx 取消（通常是收到退出信号）后优雅关闭
func (a *App) Run(ctx context.Context) error {
	a.WatchConfig(ctx)

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Log.Info("Server exiting")
	return nil
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rfmoraes/accounts-api-go/internal/adapter/database"
	apihttp "github.com/rfmoraes/accounts-api-go/internal/adapter/http"
	"github.com/rfmoraes/accounts-api-go/internal/app/identity"
	"github.com/rfmoraes/accounts-api-go/internal/domain/model"
	"github.com/rfmoraes/accounts-api-go/internal/infra/metrics"
	"github.com/rfmoraes/accounts-api-go/internal/infra/middleware"
	"github.com/rfmoraes/accounts-api-go/internal/notification"
	"github.com/rfmoraes/accounts-api-go/internal/storage"
	"github.com/rfmoraes/accounts-api-go/pkg/cache"
	"github.com/rfmoraes/accounts-api-go/pkg/config"
	"github.com/rfmoraes/accounts-api-go/pkg/resilience"
	"github.com/rfmoraes/accounts-api-go/pkg/security"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// App agrega todas as dependências da aplicação
type App struct {
	Logger         *zap.Logger
	Config         *config.Config
	DB             *database.Database
	Cache          cache.Cache
	Identity       *identity.Service
	CodeRepo       *database.CodeRepository
	AuthHandler    *apihttp.AuthHandler
	UserHandler    *apihttp.UserHandler
	HealthChecker  *apihttp.HealthChecker
	Middleware     *middleware.Middleware
	MetricsHandler *middleware.MetricsHandler
	APIMetrics     *metrics.APIMetrics
}

// NewApp cria uma nova instância da aplicação com todas as dependências injetadas
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	dbConfig := database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        gormLogLevel(cfg.Database.LogLevel),
		SlowThreshold:   cfg.Database.SlowThreshold,
		SkipMigrations:  cfg.Database.SkipMigrations,
	}

	db, err := database.NewDatabase(ctx, dbConfig, logger)
	if err != nil {
		return nil, err
	}

	apiMetrics := metrics.NewAPIMetrics()
	metricsHandler := &middleware.MetricsHandler{
		Metrics: apiMetrics,
		Logger:  logger,
	}

	appCache := newCache(cfg, apiMetrics, logger)

	// Repositórios
	userRepo := database.NewUserRepository(db.DB(), logger)
	codeRepo := database.NewCodeRepository(db.DB(), cfg.Codes.TTL, cfg.Codes.Digits, logger)

	// Segurança
	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		secret = security.GetJWTSecret()
	}
	keyManager, err := security.NewKeyManager(secret, logger)
	if err != nil {
		return nil, fmt.Errorf("erro ao inicializar gerenciador de chaves: %w", err)
	}
	hasher := security.NewHasher(cfg.Auth.PasswordCost)

	// Canais de notificação, cada um atrás de seu circuit breaker
	var emailCh notification.EmailChannel
	var smsCh notification.SMSChannel
	var emailBreaker, smsBreaker *resilience.CircuitBreaker

	if cfg.Notifications.EmailEnabled {
		emailCh = notification.NewEmailSender(cfg.Notifications.SMTP, logger)
		emailBreaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: "notifications-email",
		}, logger, apiMetrics)
	}
	if cfg.Notifications.SMSEnabled {
		smsCh = notification.NewSMSSender(cfg.Notifications.SMS, logger)
		smsBreaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: "notifications-sms",
		}, logger, apiMetrics)
	}

	dispatcher := notification.NewDispatcher(emailCh, smsCh, emailBreaker, smsBreaker, apiMetrics, logger)

	// Serviço de identidade
	identityService := identity.NewService(
		userRepo,
		codeRepo,
		dispatcher,
		hasher,
		keyManager,
		cfg.Auth.TokenExpiration,
		appCache,
		apiMetrics,
		logger,
	)

	photos, err := storage.NewPhotoStorage(cfg.Uploads.Dir)
	if err != nil {
		return nil, fmt.Errorf("erro ao inicializar armazenamento de fotos: %w", err)
	}

	// Middlewares e handlers
	middlewares := middleware.NewMiddleware(cfg, keyManager, apiMetrics, logger)
	middlewares.SetMetricsMiddleware(middleware.NewMetricsMiddleware(apiMetrics, logger))

	authHandler := apihttp.NewAuthHandler(identityService, logger)
	userHandler := apihttp.NewUserHandler(identityService, photos, int64(cfg.Uploads.MaxSizeMB), logger)
	healthChecker := apihttp.NewHealthChecker(db, appCache, codeRepo, logger)

	return &App{
		Logger:         logger,
		Config:         cfg,
		DB:             db,
		Cache:          appCache,
		Identity:       identityService,
		CodeRepo:       codeRepo,
		AuthHandler:    authHandler,
		UserHandler:    userHandler,
		HealthChecker:  healthChecker,
		Middleware:     middlewares,
		MetricsHandler: metricsHandler,
		APIMetrics:     apiMetrics,
	}, nil
}

// StartBackground inicia as tarefas de fundo da aplicação. Hoje, a
// varredura periódica de códigos expirados.
func (a *App) StartBackground(ctx context.Context) {
	a.CodeRepo.StartReaper(ctx, a.Config.Codes.ReapInterval)
}

// RegisterRoutes registra todas as rotas no router
func (a *App) RegisterRoutes(router *gin.Engine) {
	router.Use(a.Middleware.Recovery())
	router.Use(a.Middleware.Logger())
	router.Use(a.Middleware.Metrics())
	router.Use(a.Middleware.SecurityHeaders())
	router.Use(a.Middleware.CORS())
	router.Use(a.Middleware.IgnoreFavicon())
	router.Use(a.Middleware.IPRateLimit())

	if a.Config.Tracing.Enabled {
		router.Use(a.Middleware.Tracing())
	}

	if a.Config.Metrics.Enabled {
		a.MetricsHandler.RegisterEndpoint(router)
	}

	// Health checks públicos
	router.GET("/health", a.HealthChecker.LivenessCheck)
	router.GET("/health/liveness", a.HealthChecker.LivenessCheck)
	router.GET("/health/readiness", a.HealthChecker.ReadinessCheck)

	// Endpoints de credencial, com limite apertado contra força bruta
	authLimit := a.Middleware.AuthRateLimit(10, time.Minute)

	auth := router.Group("/auth")
	{
		auth.POST("/register", authLimit, a.AuthHandler.Register)
		auth.POST("/login", authLimit, a.AuthHandler.Login)
		auth.POST("/activate", authLimit, a.AuthHandler.Activate)
		auth.POST("/activate/regenerate", authLimit, a.AuthHandler.RegenerateActivationCode)
		auth.POST("/password/forgot", authLimit, a.AuthHandler.ForgotPassword)
		auth.POST("/password/verify", authLimit, a.AuthHandler.VerifyResetCode)
		auth.POST("/password/reset", authLimit, a.AuthHandler.ResetPassword)
	}

	// Perfil do usuário autenticado, qualquer papel
	users := router.Group("/users")
	users.Use(a.Middleware.Authenticate)
	users.Use(a.Middleware.UserRateLimit())
	users.Use(a.Middleware.RequireRoles(model.RoleUser, model.RoleAdmin, model.RoleOwner))
	{
		users.GET("/me", a.UserHandler.GetProfile)
		users.PUT("/me", a.UserHandler.UpdateProfile)
		users.POST("/me/photo", a.UserHandler.UploadPhoto)
	}

	// Superfície administrativa
	admin := router.Group("/admin")
	admin.Use(a.Middleware.Authenticate)
	admin.Use(a.Middleware.UserRateLimit())
	admin.Use(a.Middleware.RequireRoles(model.RoleAdmin, model.RoleOwner))
	{
		admin.GET("/users", a.UserHandler.ListUsers)
		admin.GET("/users/:id", a.UserHandler.GetUser)
		admin.PUT("/users/:id", a.UserHandler.UpdateUser)
		admin.POST("/users/:id/block", a.UserHandler.BlockUser)
		admin.POST("/users/:id/unblock", a.UserHandler.UnblockUser)
		admin.GET("/health/detailed", a.HealthChecker.DetailedHealth)

		// Remoção definitiva é exclusiva do owner
		admin.DELETE("/users/:id", a.Middleware.RequireRoles(model.RoleOwner), a.UserHandler.DeleteUser)
	}
}

// Close libera os recursos da aplicação
func (a *App) Close() error {
	return a.DB.Close()
}

func newCache(cfg *config.Config, apiMetrics *metrics.APIMetrics, logger *zap.Logger) cache.Cache {
	if !cfg.Cache.Enabled {
		return &cache.NoOpCache{}
	}

	if cfg.Cache.Type == "redis" && cfg.Cache.Redis.Address != "" {
		redisCache, err := cache.NewRedisCache(
			cfg.Cache.Redis.Address,
			cfg.Cache.Redis.Password,
			cfg.Cache.Redis.DB,
			logger,
		)
		if err == nil {
			logger.Info("cache Redis inicializado", zap.String("address", cfg.Cache.Redis.Address))
			return redisCache
		}
		logger.Warn("falha ao conectar ao Redis, usando cache em memória", zap.Error(err))
	}

	return cache.NewMemoryCache(cfg.Cache.TTL, 2*cfg.Cache.TTL, apiMetrics, logger)
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return database.LogLevelSilent
	case "error":
		return database.LogLevelError
	case "info":
		return database.LogLevelInfo
	default:
		return database.LogLevelWarn
	}
}

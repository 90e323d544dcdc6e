package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rfmoraes/accounts-api-go/internal/infra/metrics"
	"github.com/rfmoraes/accounts-api-go/pkg/cache"
	"github.com/rfmoraes/accounts-api-go/pkg/config"
	"github.com/rfmoraes/accounts-api-go/pkg/ratelimit"
	"github.com/rfmoraes/accounts-api-go/pkg/security"
	"go.uber.org/zap"
)

// Middleware contém todos os middlewares da aplicação
type Middleware struct {
	logger              *zap.Logger
	authMiddleware      *AuthMiddleware
	recoveryMiddleware  *RecoveryMiddleware
	securityMiddleware  *SecurityMiddleware
	tracingMiddleware   *TracingMiddleware
	metricsMiddleware   *MetricsMiddleware
	rateLimitMiddleware *RateLimitMiddleware
}

// NewMiddleware cria um novo conjunto de middlewares
func NewMiddleware(cfg *config.Config, keyManager *security.KeyManager, apiMetrics *metrics.APIMetrics, logger *zap.Logger) *Middleware {
	serviceName := "accounts-api"
	if cfg.Tracing.Enabled && cfg.Tracing.ServiceName != "" {
		serviceName = cfg.Tracing.ServiceName
	}

	// Rate limiting depende de Redis. Sem Redis configurado ou
	// alcançável, os limitadores viram no-ops.
	var limiter *ratelimit.RedisLimiter
	if cfg.Cache.Type == "redis" && cfg.Cache.Redis.Address != "" {
		redisClient, err := cache.NewRedisClientWithConfig(&redis.Options{
			Addr:     cfg.Cache.Redis.Address,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		}, logger)

		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := redisClient.Ping(ctx).Err(); err != nil {
				logger.Warn("Redis inacessível, rate limiting desabilitado",
					zap.Error(err),
					zap.String("redis.address", cfg.Cache.Redis.Address))
			} else {
				logger.Info("Conectado ao Redis para rate limiting",
					zap.String("redis.address", cfg.Cache.Redis.Address))
				limiter = ratelimit.NewRedisLimiter(redisClient, logger)
			}
		}
	} else {
		logger.Info("Redis não configurado, rate limiting desabilitado")
	}

	var rateLimitMiddleware *RateLimitMiddleware
	if limiter != nil {
		rateLimitMiddleware = NewRateLimitMiddleware(limiter, apiMetrics, logger)
	}

	return &Middleware{
		logger:              logger,
		authMiddleware:      NewAuthMiddleware(keyManager, logger),
		recoveryMiddleware:  NewRecoveryMiddleware(logger),
		securityMiddleware:  NewSecurityMiddleware(logger),
		tracingMiddleware:   NewTracingMiddleware(logger, serviceName),
		rateLimitMiddleware: rateLimitMiddleware,
	}
}

// SetMetricsMiddleware configura o middleware de métricas
func (m *Middleware) SetMetricsMiddleware(metricsMiddleware *MetricsMiddleware) {
	m.metricsMiddleware = metricsMiddleware
}

// Metrics retorna o middleware de métricas
func (m *Middleware) Metrics() gin.HandlerFunc {
	if m.metricsMiddleware != nil {
		return m.metricsMiddleware.Middleware()
	}
	return func(c *gin.Context) {
		c.Next() // No-op se não configurado
	}
}

// Authenticate middleware para autenticação de usuários
func (m *Middleware) Authenticate(c *gin.Context) {
	m.authMiddleware.Authenticate(c)
}

// RequireRoles restringe a rota aos papéis informados
func (m *Middleware) RequireRoles(roles ...string) gin.HandlerFunc {
	return m.authMiddleware.RequireRoles(roles...)
}

// Recovery middleware para recuperação de pânicos
func (m *Middleware) Recovery() gin.HandlerFunc {
	return m.recoveryMiddleware.Recovery()
}

// IgnoreFavicon é um middleware que ignora requisições para /favicon.ico
func (m *Middleware) IgnoreFavicon() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/favicon.ico" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Logger middleware para logging de requisições
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method

		m.logger.Info("request completed",
			zap.String("path", path),
			zap.String("method", method),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", clientIP),
		)
	}
}

// SecurityHeaders middleware para adicionar cabeçalhos de segurança
func (m *Middleware) SecurityHeaders() gin.HandlerFunc {
	return m.securityMiddleware.Headers()
}

// CORS middleware para configurar CORS
func (m *Middleware) CORS() gin.HandlerFunc {
	return m.securityMiddleware.CORS()
}

// Tracing retorna o middleware de tracing
func (m *Middleware) Tracing() gin.HandlerFunc {
	return m.tracingMiddleware.Middleware()
}

// IPRateLimit limita requisições por IP, no-op sem Redis
func (m *Middleware) IPRateLimit() gin.HandlerFunc {
	if m.rateLimitMiddleware == nil {
		return passthrough
	}
	return m.rateLimitMiddleware.IPRateLimit()
}

// AuthRateLimit limita tentativas em endpoints de credencial, no-op sem Redis
func (m *Middleware) AuthRateLimit(limit int, period time.Duration) gin.HandlerFunc {
	if m.rateLimitMiddleware == nil {
		return passthrough
	}
	return m.rateLimitMiddleware.AuthRateLimit(limit, period)
}

// UserRateLimit limita requisições por usuário autenticado, no-op sem Redis
func (m *Middleware) UserRateLimit() gin.HandlerFunc {
	if m.rateLimitMiddleware == nil {
		return passthrough
	}
	return m.rateLimitMiddleware.UserRateLimit()
}

func passthrough(c *gin.Context) {
	c.Next()
}

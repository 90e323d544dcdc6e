package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rfmoraes/accounts-api-go/internal/infra/metrics"
	"github.com/rfmoraes/accounts-api-go/pkg/ratelimit"
	"go.uber.org/zap"
)

// RateLimitMiddleware gerencia rate limiting
type RateLimitMiddleware struct {
	limiter *ratelimit.RedisLimiter
	logger  *zap.Logger
	metrics *metrics.APIMetrics
}

// NewRateLimitMiddleware cria um novo middleware de rate limiting
func NewRateLimitMiddleware(limiter *ratelimit.RedisLimiter, metrics *metrics.APIMetrics, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
		metrics: metrics,
	}
}

// IPRateLimit limita requisições por IP
func (m *RateLimitMiddleware) IPRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		config := ratelimit.LimitConfig{
			Key:         clientIP,
			Limit:       100,         // 100 requisições
			Period:      time.Minute, // por minuto
			BurstFactor: 1.5,         // permite até 50% mais em picos
		}

		blockKey := fmt.Sprintf("ratelimit:blocked:%s", clientIP)
		blocked, _ := m.limiter.RedisClient.Get(c, blockKey).Bool()
		if blocked {
			c.Header("Retry-After", "600") // 10 minutos
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "IP temporariamente bloqueado devido a excesso de requisições",
				"retry_after": 600,
			})
			return
		}

		allowed, limit, remaining, resetAfter, err := m.limiter.Allow(c.Request.Context(), config)
		if err != nil {
			m.logger.Error("erro ao verificar rate limit", zap.Error(err))
			c.Next() // Em caso de erro, permite a requisição
			return
		}

		if !allowed && remaining < -100 { // Valor negativo alto indica muitas requisições excedentes
			if m.metrics != nil {
				m.metrics.RateLimitExceeded(requestPath(c), c.Request.Method, "ip_limit")
			}
			m.logger.Warn("Possível ataque detectado - alto volume de requisições",
				zap.String("ip", clientIP),
				zap.Int("requests", limit-remaining))

			// Bloquear IP por período mais longo (10 minutos)
			m.limiter.RedisClient.Set(c, blockKey, true, 10*time.Minute)

			c.Header("Retry-After", "600")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Limite de requisições excedido significativamente",
				"retry_after": 600,
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(resetAfter).Unix(), 10))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(resetAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "taxa de requisições excedida",
				"retry_after": int(resetAfter.Seconds()),
			})
			return
		}

		c.Next()
	}
}

// AuthRateLimit limita tentativas nos endpoints de credencial (login,
// ativação, códigos) por IP e rota, como proteção contra força bruta.
func (m *RateLimitMiddleware) AuthRateLimit(limit int, period time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := requestPath(c)

		config := ratelimit.LimitConfig{
			Key:         fmt.Sprintf("auth:%s:%s", c.ClientIP(), path),
			Limit:       limit,
			Period:      period,
			BurstFactor: 1.0, // sem tolerância a picos em endpoints de credencial
		}

		allowed, _, _, resetAfter, err := m.limiter.Allow(c.Request.Context(), config)
		if err != nil {
			m.logger.Error("erro ao verificar rate limit de autenticação", zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			if m.metrics != nil {
				m.metrics.RateLimitExceeded(path, c.Request.Method, "auth_limit")
			}
			m.logger.Warn("limite de tentativas de autenticação excedido",
				zap.String("ip", c.ClientIP()),
				zap.String("path", path))
			c.Header("Retry-After", strconv.Itoa(int(resetAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "muitas tentativas, aguarde antes de tentar novamente",
				"retry_after": int(resetAfter.Seconds()),
			})
			return
		}

		c.Next()
	}
}

// UserRateLimit limita requisições por usuário autenticado
func (m *RateLimitMiddleware) UserRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(ContextUserIDKey)
		if !exists {
			c.Next() // Se não houver usuário, passa adiante
			return
		}

		id, ok := userID.(string)
		if !ok {
			c.Next()
			return
		}

		config := ratelimit.LimitConfig{
			Key:         "user:" + id,
			Limit:       1000,        // 1000 requisições
			Period:      time.Minute, // por minuto
			BurstFactor: 1.5,
		}

		allowed, limit, remaining, resetAfter, err := m.limiter.Allow(c.Request.Context(), config)
		if err != nil {
			m.logger.Error("erro ao verificar rate limit do usuário", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-User-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-User-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-User-Reset", strconv.FormatInt(time.Now().Add(resetAfter).Unix(), 10))

		if !allowed {
			if m.metrics != nil {
				m.metrics.RateLimitExceeded(requestPath(c), c.Request.Method, "user_limit")
			}
			c.Header("Retry-After", strconv.Itoa(int(resetAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "taxa de requisições do usuário excedida",
				"retry_after": int(resetAfter.Seconds()),
			})
			return
		}

		c.Next()
	}
}

func requestPath(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}

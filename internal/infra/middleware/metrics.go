package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rfmoraes/accounts-api-go/internal/infra/metrics"
	"go.uber.org/zap"
)

// MetricsMiddleware fornece middleware para coletar métricas
type MetricsMiddleware struct {
	metrics *metrics.APIMetrics
	logger  *zap.Logger
}

// NewMetricsMiddleware cria um novo middleware de métricas
func NewMetricsMiddleware(metrics *metrics.APIMetrics, logger *zap.Logger) *MetricsMiddleware {
	return &MetricsMiddleware{
		metrics: metrics,
		logger:  logger,
	}
}

// MetricsHandler gerencia os endpoints de métricas
type MetricsHandler struct {
	Metrics *metrics.APIMetrics
	Logger  *zap.Logger
}

// NewMetricsHandler cria um novo handler de métricas
func NewMetricsHandler(metrics *metrics.APIMetrics, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{
		Metrics: metrics,
		Logger:  logger,
	}
}

// RegisterEndpoint registra o endpoint para expor métricas do Prometheus
func (h *MetricsHandler) RegisterEndpoint(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Logger.Info("Endpoint de métricas Prometheus registrado em /metrics")
}

// Middleware registra métricas para cada requisição
func (m *MetricsMiddleware) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Obter o caminho e método
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		// Registrar o início da requisição
		m.metrics.RequestStarted(path, method)

		start := time.Now()

		// Processar a requisição
		c.Next()

		duration := time.Since(start)

		// Registrar a conclusão da requisição
		status := strconv.Itoa(c.Writer.Status())
		m.metrics.RequestCompleted(path, method, status, duration)

		// Registrar erros, se houver
		if c.Writer.Status() >= 400 {
			errorType := "client_error"
			if c.Writer.Status() >= 500 {
				errorType = "server_error"
			}
			m.metrics.RequestError(path, method, errorType)
		}
	}
}

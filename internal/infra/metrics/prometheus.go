package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// APIMetrics gerencia métricas da API e do ciclo de vida de contas
type APIMetrics struct {
	requestCounter     *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	activeRequests     *prometheus.GaugeVec
	errorsTotal        *prometheus.CounterVec
	rateLimited        *prometheus.CounterVec
	cacheHitRatio      *prometheus.GaugeVec
	circuitBreakerOpen *prometheus.GaugeVec

	registrations        prometheus.Counter
	activations          prometheus.Counter
	codesIssued          *prometheus.CounterVec
	codesConsumed        *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
}

// NewAPIMetrics cria e registra métricas do prometheus
func NewAPIMetrics() *APIMetrics {
	return &APIMetrics{
		requestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_api_requests_total",
				Help: "Total number of HTTP requests by path, method, and status code",
			},
			[]string{"path", "method", "status"},
		),

		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accounts_api_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		activeRequests: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "accounts_api_active_requests",
				Help: "Number of in-flight requests being processed",
			},
			[]string{"path", "method"},
		),

		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_api_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"path", "method", "error_type"},
		),

		rateLimited: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_api_rate_limited_requests_total",
				Help: "Total number of rate limited requests",
			},
			[]string{"path", "method", "limit_type"},
		),

		cacheHitRatio: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "accounts_api_cache_hit_ratio",
				Help: "Cache hit ratio (0.0 to 1.0)",
			},
			[]string{"cache_type"},
		),

		circuitBreakerOpen: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "accounts_api_circuit_breaker_open",
				Help: "Indicates if a circuit breaker is open (1) or closed (0)",
			},
			[]string{"service"},
		),

		registrations: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "accounts_api_registrations_total",
				Help: "Total number of registered accounts",
			},
		),

		activations: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "accounts_api_activations_total",
				Help: "Total number of activated accounts",
			},
		),

		codesIssued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_api_verification_codes_issued_total",
				Help: "Total number of verification codes issued by purpose",
			},
			[]string{"purpose"},
		),

		codesConsumed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_api_verification_codes_consumed_total",
				Help: "Total number of verification codes consumed by purpose",
			},
			[]string{"purpose"},
		),

		notificationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_api_notification_failures_total",
				Help: "Total number of notification dispatch failures by channel",
			},
			[]string{"channel"},
		),
	}
}

// RequestStarted registra o início de uma requisição
func (m *APIMetrics) RequestStarted(path, method string) {
	m.activeRequests.WithLabelValues(path, method).Inc()
}

// RequestCompleted registra a conclusão de uma requisição
func (m *APIMetrics) RequestCompleted(path, method, status string, duration time.Duration) {
	m.requestCounter.WithLabelValues(path, method, status).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
	m.activeRequests.WithLabelValues(path, method).Dec()
}

// RequestError registra um erro de requisição
func (m *APIMetrics) RequestError(path, method, errorType string) {
	m.errorsTotal.WithLabelValues(path, method, errorType).Inc()
}

// RateLimitExceeded registra quando um limite de taxa é excedido
func (m *APIMetrics) RateLimitExceeded(path, method, limitType string) {
	m.rateLimited.WithLabelValues(path, method, limitType).Inc()
}

// UpdateCacheHitRatio atualiza a taxa de acertos do cache
func (m *APIMetrics) UpdateCacheHitRatio(cacheType string, hitRatio float64) {
	m.cacheHitRatio.WithLabelValues(cacheType).Set(hitRatio)
}

// CircuitBreakerStateChanged registra mudança no estado de um circuit breaker
func (m *APIMetrics) CircuitBreakerStateChanged(service string, isOpen bool) {
	value := 0.0
	if isOpen {
		value = 1.0
	}
	m.circuitBreakerOpen.WithLabelValues(service).Set(value)
}

// UserRegistered registra uma conta criada
func (m *APIMetrics) UserRegistered() {
	m.registrations.Inc()
}

// UserActivated registra uma conta ativada
func (m *APIMetrics) UserActivated() {
	m.activations.Inc()
}

// CodeIssued registra a emissão de um código de verificação
func (m *APIMetrics) CodeIssued(purpose string) {
	m.codesIssued.WithLabelValues(purpose).Inc()
}

// CodeConsumed registra o consumo de um código de verificação
func (m *APIMetrics) CodeConsumed(purpose string) {
	m.codesConsumed.WithLabelValues(purpose).Inc()
}

// NotificationFailed registra uma falha de envio de notificação
func (m *APIMetrics) NotificationFailed(channel string) {
	m.notificationFailures.WithLabelValues(channel).Inc()
}

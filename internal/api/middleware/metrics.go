// metrics.go — Prometheus HTTP метрики для Archive Element.
// Регистрирует метрики: ae_http_requests_total, ae_http_request_duration_seconds.
// Бизнес-метрики (ae_archives_total, ae_operations_total) обновляются
// из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ae_http_requests_total",
			Help: "Общее количество HTTP-запросов к Archive Element",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ae_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Archive Element в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// ArchivesTotal — текущее количество записей в хранилище (gauge).
	ArchivesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ae_archives_total",
			Help: "Текущее количество архивных записей",
		},
	)

	// OperationsTotal — общее количество операций с архивами.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ae_operations_total",
			Help: "Общее количество операций с архивами",
		},
		[]string{"operation", "result"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (id и имена блобов схлопываются для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath схлопывает переменные сегменты пути для лейблов метрик.
// /api/files/a1b2... → /api/files/{id}, /uploads/report_... → /uploads/{name}
func normalizePath(path string) string {
	switch {
	case path == "/health" || path == "/health/ready" || path == "/metrics":
		return path
	case path == "/api/upload" || path == "/api/files":
		return path
	case strings.HasPrefix(path, "/api/files/"):
		return "/api/files/{id}"
	case strings.HasPrefix(path, "/uploads/"):
		return "/uploads/{name}"
	}
	return path
}

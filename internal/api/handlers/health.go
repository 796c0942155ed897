// health.go — обработчики health endpoints.
package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bigkaa/archive-element/internal/config"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// StorePinger — проверка доступности хранилища метаданных.
// Реализуется PostgresStore; для JSON-хранилища проверка не нужна.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// DependencyChecker — состояние внешних зависимостей сервиса.
// Реализуется DephealthService; ключ — имя зависимости,
// значение — true если зависимость доступна.
type DependencyChecker interface {
	Health() map[string]bool
}

// HealthHandler реализует health endpoints: /health, /health/ready.
type HealthHandler struct {
	version   string
	startedAt time.Time
	// dataDir — путь к директории данных ("" при S3-бэкенде)
	dataDir string
	// pinger — проверка хранилища метаданных (nil для JSON-бэкенда)
	pinger StorePinger
	// deps — состояние внешних зависимостей (nil если мониторинг не включён)
	deps DependencyChecker
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(dataDir string, pinger StorePinger, deps DependencyChecker) *HealthHandler {
	return &HealthHandler{
		version:   config.Version,
		startedAt: time.Now(),
		dataDir:   dataDir,
		pinger:    pinger,
		deps:      deps,
	}
}

// Health обрабатывает GET /health.
// Возвращает 200, если процесс жив. Зависимости не проверяет.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"uptime":    int64(time.Since(h.startedAt).Seconds()),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "archive-element",
	}

	writeJSON(w, http.StatusOK, resp)
}

// Ready обрабатывает GET /health/ready.
// Проверяет: файловая система (local backend), хранилище метаданных
// (postgres backend). 503 при отказе любой проверки.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if h.dataDir != "" {
		fsCheck := h.checkFilesystem()
		checks["filesystem"] = fsCheck
		if fsCheck["status"] != "ok" {
			overallStatus = statusFail
			httpStatus = http.StatusServiceUnavailable
		}
	}

	if h.pinger != nil {
		storeCheck := h.checkStore(r.Context())
		checks["metastore"] = storeCheck
		if storeCheck["status"] != "ok" {
			overallStatus = statusFail
			httpStatus = http.StatusServiceUnavailable
		}
	}

	if h.deps != nil {
		depsCheck := h.checkDependencies()
		checks["dependencies"] = depsCheck
		if depsCheck["status"] != "ok" {
			overallStatus = statusFail
			httpStatus = http.StatusServiceUnavailable
		}
	}

	resp := map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "archive-element",
		"checks":    checks,
	}

	writeJSON(w, httpStatus, resp)
}

// checkFilesystem проверяет доступность директории данных на запись.
func (h *HealthHandler) checkFilesystem() map[string]any {
	testFile := filepath.Join(h.dataDir, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Директория данных недоступна для записи: " + err.Error(),
		}
	}
	_ = os.Remove(testFile)

	return map[string]any{
		"status": "ok",
	}
}

// checkDependencies сводит состояние внешних зависимостей
// (topologymetrics): все доступны — ok, иначе fail с перечнем.
func (h *HealthHandler) checkDependencies() map[string]any {
	status := "ok"
	deps := h.deps.Health()
	for _, healthy := range deps {
		if !healthy {
			status = statusFail
			break
		}
	}
	return map[string]any{
		"status": status,
		"deps":   deps,
	}
}

// checkStore проверяет доступность хранилища метаданных через ping.
func (h *HealthHandler) checkStore(ctx context.Context) map[string]any {
	if err := h.pinger.Ping(ctx); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Хранилище метаданных недоступно: " + err.Error(),
		}
	}
	return map[string]any{
		"status": "ok",
	}
}

// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Archive Element в конфигурации по умолчанию (json + local) внешних
// зависимостей не имеет, сервис в этом случае не создаётся. При
// AE_BLOB_BACKEND=s3 мониторится liveness endpoint MinIO (HTTP GET,
// critical).
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks" // Регистрация фабрик checker-ов (HTTP и др.)
)

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
//
// Параметры:
//   - name — имя вершины графа текущего приложения (DEPHEALTH_NAME)
//   - group — имя группы в метриках (AE_DEPHEALTH_GROUP)
//   - depName — имя зависимости (например, "s3")
//   - depURL — URL зависимости для проверки
//   - checkInterval — интервал проверки (AE_DEPHEALTH_CHECK_INTERVAL)
func NewDephealthService(
	name string,
	group string,
	depName string,
	depURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	dh, err := dephealth.New(
		name,
		group,
		dephealth.WithLogger(logger),
		dephealth.HTTP(depName,
			dephealth.FromURL(depURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		),
	)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

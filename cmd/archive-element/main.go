// Точка входа Archive Element — сервиса хранения зашифрованных блобов
// и их метаданных.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/archive-element/internal/api/handlers"
	"github.com/bigkaa/archive-element/internal/api/middleware"
	"github.com/bigkaa/archive-element/internal/config"
	"github.com/bigkaa/archive-element/internal/server"
	"github.com/bigkaa/archive-element/internal/service"
	"github.com/bigkaa/archive-element/internal/storage/blob"
	"github.com/bigkaa/archive-element/internal/storage/metastore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Archive Element запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("store_backend", cfg.StoreBackend),
		slog.String("blob_backend", cfg.BlobBackend),
		slog.Int64("max_upload_size", cfg.MaxUploadSize),
	)

	ctx := context.Background()

	// --- Инициализация компонентов ---

	// 1. Хранилище блобов
	var blobs blob.Store
	var dephealthSvc *service.DephealthService

	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		s3Store, s3Err := blob.NewS3Store(cfg)
		if s3Err != nil {
			logger.Error("Ошибка инициализации S3", slog.String("error", s3Err.Error()))
			os.Exit(1)
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			logger.Error("Ошибка проверки бакета", slog.String("error", err.Error()))
			os.Exit(1)
		}
		blobs = s3Store

		// Мониторинг зависимости S3 через topologymetrics
		dephealthSvc, err = service.NewDephealthService(
			cfg.DephealthName,
			cfg.DephealthGroup,
			"s3",
			s3Store.HealthURL(),
			cfg.DephealthCheckInterval,
			logger,
		)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
		}
	default:
		blobs, err = blob.NewLocalStore(cfg.DataDir)
		if err != nil {
			logger.Error("Ошибка инициализации хранилища блобов", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 2. Хранилище метаданных
	var store metastore.Store
	var pinger handlers.StorePinger

	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pgStore, pgErr := metastore.NewPostgresStore(ctx, cfg, logger)
		if pgErr != nil {
			logger.Error("Ошибка инициализации PostgreSQL", slog.String("error", pgErr.Error()))
			os.Exit(1)
		}
		defer pgStore.Close()
		store = pgStore
		pinger = pgStore
	default:
		store, err = metastore.NewJSONFileStore(cfg.MetaPath, logger)
		if err != nil {
			logger.Error("Ошибка инициализации хранилища метаданных", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Начальное значение gauge количества записей
	if count, countErr := store.Count(ctx); countErr == nil {
		middleware.ArchivesTotal.Set(float64(count))
	}

	// 3. Сервис загрузки
	uploadSvc := service.NewUploadService(blobs, store, cfg.MaxUploadSize, logger)

	// 4. Мониторинг зависимостей
	if dephealthSvc != nil {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		} else {
			defer dephealthSvc.Stop()
		}
	}

	// 5. Handlers
	dataDir := cfg.DataDir
	if cfg.BlobBackend == config.BlobBackendS3 {
		dataDir = ""
	}
	// Типизированный nil в интерфейсе не равен nil, поэтому
	// присваиваем только реально созданный сервис
	var deps handlers.DependencyChecker
	if dephealthSvc != nil {
		deps = dephealthSvc
	}

	archivesHandler := handlers.NewArchivesHandler(uploadSvc, store, cfg.MaxUploadSize)
	blobsHandler := handlers.NewBlobsHandler(blobs, logger)
	healthHandler := handlers.NewHealthHandler(dataDir, pinger, deps)

	// 6. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, archivesHandler, blobsHandler, healthHandler)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Archive Element остановлен")
}

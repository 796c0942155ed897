// Пакет service — бизнес-логика Archive Element.
// upload.go — сервис загрузки блобов.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/bigkaa/archive-element/internal/api/errors"
	"github.com/bigkaa/archive-element/internal/api/middleware"
	"github.com/bigkaa/archive-element/internal/domain/model"
	"github.com/bigkaa/archive-element/internal/storage/blob"
	"github.com/bigkaa/archive-element/internal/storage/metastore"
)

// defaultFilename используется, когда клиент не передал имя файла.
const defaultFilename = "unnamed"

// UploadParams — параметры загрузки блоба.
type UploadParams struct {
	// Reader — поток данных блоба
	Reader io.Reader
	// OriginalFilename — оригинальное имя файла (может быть пустым)
	OriginalFilename string
	// MimeType — MIME-тип из заголовка multipart part (может быть пустым)
	MimeType string
	// Hash — клиентский идентификатор содержимого (обязателен)
	Hash string
	// WalletAddress — адрес кошелька ("" = не передан)
	WalletAddress string
}

// UploadError — ошибка загрузки с HTTP-кодом.
type UploadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UploadService — сервис загрузки блобов.
type UploadService struct {
	blobs         blob.Store
	store         metastore.Store
	maxUploadSize int64
	logger        *slog.Logger
}

// NewUploadService создаёт сервис загрузки блобов.
// maxUploadSize — максимальный размер файла в байтах (AE_MAX_UPLOAD_MB).
func NewUploadService(blobs blob.Store, store metastore.Store, maxUploadSize int64, logger *slog.Logger) *UploadService {
	return &UploadService{
		blobs:         blobs,
		store:         store,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "upload_service")),
	}
}

// Upload сохраняет блоб и создаёт архивную запись.
//
// Поток:
//  1. Валидация hash
//  2. Запись блоба (streaming + SHA-256)
//  3. Проверка лимита размера (413 и удаление блоба при превышении)
//  4. Формирование записи
//  5. Insert в хранилище метаданных
//
// Ошибка персистентности метаданных не проглатывается: запрос
// завершается ошибкой, а записанный блоб удаляется, чтобы память
// и диск не разошлись молча.
func (s *UploadService) Upload(ctx context.Context, params UploadParams) (*model.ArchiveRecord, *UploadError) {
	// 1. Hash обязателен, непрозрачен, не проверяется по содержимому
	if strings.TrimSpace(params.Hash) == "" {
		return nil, &UploadError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Поле 'hash' обязательно",
		}
	}

	// 2. Записываем блоб
	saved, err := s.blobs.Save(ctx, params.Reader, normalizeFilename(params.OriginalFilename))
	if err != nil {
		s.logger.Error("Ошибка сохранения блоба",
			slog.String("filename", params.OriginalFilename),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка сохранения файла",
		}
	}

	// 3. Лимит размера файла. MaxBytesReader на уровне handler'а
	// режет только запрос целиком (с запасом на заголовки формы),
	// точный размер файла известен лишь после streaming-записи.
	if saved.Size > s.maxUploadSize {
		if delErr := s.blobs.Delete(ctx, saved.StoragePath); delErr != nil {
			s.logger.Error("Ошибка удаления блоба сверх лимита",
				slog.String("storage_path", saved.StoragePath),
				slog.String("error", delErr.Error()),
			)
		}
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, &UploadError{
			StatusCode: 413,
			Code:       apierrors.CodeFileTooLarge,
			Message:    fmt.Sprintf("Размер файла %d байт превышает лимит %d байт", saved.Size, s.maxUploadSize),
		}
	}

	// 4. Формируем запись
	var wallet *string
	if params.WalletAddress != "" {
		w := params.WalletAddress
		wallet = &w
	}

	record := &model.ArchiveRecord{
		ID:            uuid.New().String(),
		Name:          normalizeFilename(params.OriginalFilename),
		Size:          saved.Size,
		MimeType:      normalizeMimeType(params.MimeType),
		Hash:          params.Hash,
		WalletAddress: wallet,
		StoragePath:   saved.StoragePath,
		Checksum:      saved.Checksum,
		CreatedAt:     time.Now().UTC(),
	}

	// 5. Insert. При отказе — откат блоба
	if err := s.store.Insert(ctx, record); err != nil {
		if delErr := s.blobs.Delete(ctx, saved.StoragePath); delErr != nil {
			s.logger.Error("Ошибка отката блоба",
				slog.String("storage_path", saved.StoragePath),
				slog.String("error", delErr.Error()),
			)
		}
		s.logger.Error("Ошибка записи метаданных",
			slog.String("id", record.ID),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка записи метаданных",
		}
	}

	// 6. Метрики
	middleware.OperationsTotal.WithLabelValues("upload", "success").Inc()
	middleware.ArchivesTotal.Inc()

	s.logger.Info("Блоб загружен",
		slog.String("id", record.ID),
		slog.String("name", record.Name),
		slog.Int64("size", record.Size),
		slog.String("hash", record.Hash),
		slog.String("storage_path", record.StoragePath),
	)

	return record, nil
}

// normalizeFilename возвращает имя файла либо placeholder, если клиент
// его не передал.
func normalizeFilename(name string) string {
	if strings.TrimSpace(name) == "" {
		return defaultFilename
	}
	return name
}

// normalizeMimeType возвращает MIME-тип без параметров (charset и т.д.)
// либо generic binary тип, если он не указан.
func normalizeMimeType(mimeType string) string {
	if mimeType == "" {
		return "application/octet-stream"
	}
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}

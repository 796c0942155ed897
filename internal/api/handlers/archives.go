// archives.go — HTTP handlers операций с архивами.
// Upload, List, Get metadata.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/archive-element/internal/api/errors"
	"github.com/bigkaa/archive-element/internal/domain/model"
	"github.com/bigkaa/archive-element/internal/service"
	"github.com/bigkaa/archive-element/internal/storage/metastore"
)

// multipartMemoryLimit — буфер парсинга multipart form в памяти,
// остальное уходит во временные файлы.
const multipartMemoryLimit = 32 << 20 // 32 MB

// ArchivesHandler — обработчик endpoints архивов.
type ArchivesHandler struct {
	uploadSvc     *service.UploadService
	store         metastore.Store
	maxUploadSize int64
}

// NewArchivesHandler создаёт обработчик endpoints архивов.
func NewArchivesHandler(uploadSvc *service.UploadService, store metastore.Store, maxUploadSize int64) *ArchivesHandler {
	return &ArchivesHandler{
		uploadSvc:     uploadSvc,
		store:         store,
		maxUploadSize: maxUploadSize,
	}
}

// uploadResponse — тело ответа успешной загрузки.
type uploadResponse struct {
	Success bool                 `json:"success"`
	Archive *model.ArchiveRecord `json:"archive"`
}

// listResponse — тело ответа списка записей.
type listResponse struct {
	Items []*model.ArchiveRecord `json:"items"`
}

// archiveResponse — тело ответа одной записи.
type archiveResponse struct {
	Archive *model.ArchiveRecord `json:"archive"`
}

// Upload обрабатывает POST /api/upload.
// Multipart form: file (обязательно), hash (обязательно),
// walletAddress (опционально).
func (h *ArchivesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Лимит тела запроса: размер файла + запас на заголовки формы
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Размер запроса превышает лимит %d байт", h.maxUploadSize))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}
	// Подчищаем временные файлы multipart независимо от исхода
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	record, uploadErr := h.uploadSvc.Upload(r.Context(), service.UploadParams{
		Reader:           file,
		OriginalFilename: header.Filename,
		MimeType:         header.Header.Get("Content-Type"),
		Hash:             r.FormValue("hash"),
		WalletAddress:    r.FormValue("walletAddress"),
	})
	if uploadErr != nil {
		apierrors.WriteError(w, uploadErr.StatusCode, uploadErr.Code, uploadErr.Message)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Success: true,
		Archive: record,
	})
}

// List обрабатывает GET /api/files.
// Опциональный параметр wallet фильтрует по адресу кошелька
// (регистронезависимое точное совпадение). Пагинации нет.
func (h *ArchivesHandler) List(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")

	items, err := h.store.List(r.Context(), wallet)
	if err != nil {
		apierrors.InternalError(w, "Ошибка чтения хранилища метаданных")
		return
	}
	if items == nil {
		items = []*model.ArchiveRecord{}
	}

	writeJSON(w, http.StatusOK, listResponse{Items: items})
}

// Get обрабатывает GET /api/files/{id}.
func (h *ArchivesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			apierrors.NotFound(w, fmt.Sprintf("Запись %s не найдена", id))
			return
		}
		apierrors.InternalError(w, "Ошибка чтения хранилища метаданных")
		return
	}

	writeJSON(w, http.StatusOK, archiveResponse{Archive: record})
}

// writeJSON вспомогательная функция для записи JSON-ответа.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

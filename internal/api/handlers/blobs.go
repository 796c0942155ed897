// blobs.go — отдача сырых блобов по имени в хранилище.
// Статический доступ к директории загрузок: GET /uploads/{name}.
// Доступ без контроля — блобы зашифрованы на стороне клиента.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/archive-element/internal/api/errors"
	"github.com/bigkaa/archive-element/internal/storage/blob"
)

// BlobsHandler — обработчик отдачи блобов.
type BlobsHandler struct {
	blobs  blob.Store
	logger *slog.Logger
}

// NewBlobsHandler создаёт обработчик отдачи блобов.
func NewBlobsHandler(blobs blob.Store, logger *slog.Logger) *BlobsHandler {
	return &BlobsHandler{
		blobs:  blobs,
		logger: logger.With(slog.String("component", "blobs_handler")),
	}
}

// writeTracker отмечает, был ли уже начат ответ клиенту.
// После первого байта тела отправлять структурированную ошибку поздно.
type writeTracker struct {
	http.ResponseWriter
	started bool
}

func (wt *writeTracker) WriteHeader(code int) {
	wt.started = true
	wt.ResponseWriter.WriteHeader(code)
}

func (wt *writeTracker) Write(b []byte) (int, error) {
	wt.started = true
	return wt.ResponseWriter.Write(b)
}

// Unwrap отдаёт оригинальный ResponseWriter для http.ResponseController.
func (wt *writeTracker) Unwrap() http.ResponseWriter {
	return wt.ResponseWriter
}

// Get обрабатывает GET /uploads/{name}: отдаёт байты блоба как есть.
//
// Ошибка может прийти и посреди стриминга (например, обрыв чтения
// из S3): в этом случае заголовки и часть тела уже у клиента, дописывать
// JSON-ошибку в хвост нельзя — ошибка только логируется.
func (h *BlobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	tracker := &writeTracker{ResponseWriter: w}
	err := h.blobs.Serve(tracker, r, name)
	if err == nil {
		return
	}

	if errors.Is(err, blob.ErrNotFound) {
		apierrors.NotFound(w, fmt.Sprintf("Блоб %s не найден", name))
		return
	}

	h.logger.Error("Ошибка отдачи блоба",
		slog.String("name", name),
		slog.Bool("response_started", tracker.started),
		slog.String("error", err.Error()),
	)
	if !tracker.started {
		apierrors.InternalError(w, "Ошибка чтения блоба")
	}
}

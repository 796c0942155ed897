// Пакет blob — хранилище физических блобов.
//
// Содержимое блобов непрозрачно для сервиса (клиенты шифруют данные
// до загрузки). Две реализации: LocalStore (директория на диске,
// по умолчанию) и S3Store (бакет MinIO/S3).
package blob

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// ErrNotFound — блоб не найден в хранилище.
var ErrNotFound = errors.New("блоб не найден")

// SaveResult — результат сохранения блоба.
type SaveResult struct {
	// StoragePath — имя блоба в хранилище (имя файла либо ключ объекта)
	StoragePath string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого, вычисленный при записи
	Checksum string
}

// Store — интерфейс хранилища блобов.
type Store interface {
	// Save записывает данные из reader и возвращает сгенерированное
	// имя блоба, размер и checksum.
	Save(ctx context.Context, reader io.Reader, originalFilename string) (*SaveResult, error)

	// Serve отдаёт блоб клиенту по storagePath.
	// Возвращает ErrNotFound, если блоб отсутствует.
	Serve(w http.ResponseWriter, r *http.Request, storagePath string) error

	// Delete удаляет блоб. Отсутствие блоба не считается ошибкой.
	// Используется для отката после неудачной записи метаданных.
	Delete(ctx context.Context, storagePath string) error
}

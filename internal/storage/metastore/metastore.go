// Пакет metastore — хранилище архивных записей.
//
// Store изолирует persistence-слой от handler'ов: записи создаются
// один раз (Insert) и читаются (List, GetByID), операций update/delete
// нет. Две реализации: JSONFileStore (плоский JSON-файл на диске,
// по умолчанию) и PostgresStore (реляционная таблица через pgx).
package metastore

import (
	"context"
	"errors"

	"github.com/bigkaa/archive-element/internal/domain/model"
)

// Ошибки хранилища.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
)

// Store — интерфейс хранилища архивных записей.
//
// Ошибки Insert не проглатываются: вызывающий код обязан обработать
// отказ персистентности (upload в этом случае завершается ошибкой 500,
// а записанный блоб откатывается).
type Store interface {
	// Insert добавляет новую запись. Новые записи идут первыми
	// в выдаче List (порядок "новые сверху").
	Insert(ctx context.Context, rec *model.ArchiveRecord) error

	// List возвращает все записи, новые первыми. Непустой wallet
	// ограничивает выдачу записями с регистронезависимо равным
	// walletAddress; записи без адреса под фильтр не попадают.
	List(ctx context.Context, wallet string) ([]*model.ArchiveRecord, error)

	// GetByID возвращает запись по id или ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.ArchiveRecord, error)

	// Count возвращает общее количество записей.
	Count(ctx context.Context) (int, error)
}

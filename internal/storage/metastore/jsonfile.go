// jsonfile.go — JSON-файловая реализация Store.
//
// Весь список записей держится в памяти и целиком переписывается на диск
// при каждом Insert (temp → fsync → atomic rename). Кэш защищён
// sync.RWMutex: HTTP-запросы в Go обрабатываются параллельно.
// Межпроцессной блокировки нет — предполагается единственный
// пишущий процесс.
package metastore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bigkaa/archive-element/internal/domain/model"
)

// JSONFileStore — хранилище записей в одном JSON-файле.
type JSONFileStore struct {
	mu      sync.RWMutex
	records []*model.ArchiveRecord // новые первыми
	path    string
	logger  *slog.Logger
}

// NewJSONFileStore создаёт хранилище и загружает состояние с диска.
// Директория и файл создаются при отсутствии. Битый или не-массивный
// файл логируется и трактуется как пустое хранилище: предыдущее
// содержимое будет перезаписано при первом Insert.
func NewJSONFileStore(path string, logger *slog.Logger) (*JSONFileStore, error) {
	s := &JSONFileStore{
		path:   path,
		logger: logger.With(slog.String("component", "metastore")),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	s.logger.Info("Хранилище метаданных загружено",
		slog.String("path", path),
		slog.Int("records", len(s.records)),
	)

	return s, nil
}

// load читает файл метаданных с диска в кэш.
func (s *JSONFileStore) load() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		// Создаём файл с пустым массивом
		s.records = nil
		return s.persistLocked()
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения файла метаданных %s: %w", s.path, err)
	}

	var records []*model.ArchiveRecord
	if err := json.Unmarshal(data, &records); err != nil {
		// Нечитаемое прежнее состояние отбрасывается. Известный риск
		// потери данных, зафиксирован в контракте хранилища.
		s.logger.Warn("Файл метаданных повреждён, хранилище считается пустым",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		s.records = nil
		return nil
	}

	s.records = records
	return nil
}

// Insert добавляет запись в начало списка и переписывает файл.
// При ошибке записи на диск кэш откатывается и ошибка возвращается
// вызывающему коду.
func (s *JSONFileStore) Insert(_ context.Context, rec *model.ArchiveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *rec
	s.records = append([]*model.ArchiveRecord{&copied}, s.records...)

	if err := s.persistLocked(); err != nil {
		s.records = s.records[1:]
		return fmt.Errorf("ошибка сохранения метаданных: %w", err)
	}

	return nil
}

// List возвращает копии записей, новые первыми, с опциональным
// фильтром по адресу кошелька.
func (s *JSONFileStore) List(_ context.Context, wallet string) ([]*model.ArchiveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.ArchiveRecord, 0, len(s.records))
	for _, rec := range s.records {
		if !rec.MatchesWallet(wallet) {
			continue
		}
		copied := *rec
		result = append(result, &copied)
	}
	return result, nil
}

// GetByID возвращает копию записи по id или ErrNotFound.
// Линейный поиск: записей немного, индексация не предусмотрена.
func (s *JSONFileStore) GetByID(_ context.Context, id string) (*model.ArchiveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.ID == id {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// Count возвращает количество записей.
func (s *JSONFileStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// persistLocked атомарно переписывает файл метаданных целиком.
// Паттерн: JSON → temp файл → fsync → atomic rename.
// Вызывается только под s.mu.
func (s *JSONFileStore) persistLocked() error {
	records := s.records
	if records == nil {
		records = []*model.ArchiveRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	tmpPath := s.path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ Store = (*JSONFileStore)(nil)

// local.go — хранилище блобов в локальной директории.
// Streaming-запись с подсчётом SHA-256 на лету,
// паттерн temp файл → fsync → atomic rename.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStore — управление блобами в директории на диске.
type LocalStore struct {
	// dataDir — корневая директория хранения блобов (AE_DATA_DIR)
	dataDir string
}

// NewLocalStore создаёт LocalStore. Проверяет и создаёт директорию,
// если она не существует.
func NewLocalStore(dataDir string) (*LocalStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &LocalStore{dataDir: dataDir}, nil
}

// DataDir возвращает путь к директории данных.
func (s *LocalStore) DataDir() string {
	return s.dataDir
}

// Save записывает данные из reader на диск с подсчётом SHA-256 на лету.
// Формат имени файла: {name}_{timestamp}_{shortuuid}{ext}
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *LocalStore) Save(_ context.Context, reader io.Reader, originalFilename string) (*SaveResult, error) {
	storageName := generateStorageName(originalFilename)
	fullPath := filepath.Join(s.dataDir, storageName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256
	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		StoragePath: storageName,
		Size:        size,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Serve отдаёт блоб через http.ServeContent (Range requests,
// If-Modified-Since — бесплатно). storagePath очищается от
// path traversal перед обращением к диску.
func (s *LocalStore) Serve(w http.ResponseWriter, r *http.Request, storagePath string) error {
	name := filepath.Base(filepath.Clean(storagePath))
	if name == "." || name == ".." || name == "/" {
		return ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.dataDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка открытия блоба %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("ошибка получения информации о блобе %s: %w", name, err)
	}

	// Содержимое зашифровано клиентом, тип всегда бинарный
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, name, info.ModTime(), f)
	return nil
}

// Delete удаляет блоб с диска.
// Возвращает nil, если блоб уже не существует.
func (s *LocalStore) Delete(_ context.Context, storagePath string) error {
	name := filepath.Base(filepath.Clean(storagePath))
	err := os.Remove(filepath.Join(s.dataDir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления блоба %s: %w", name, err)
	}
	return nil
}

// generateStorageName генерирует имя блоба для хранения.
// Формат: {name}_{timestamp}_{shortuuid}{ext}
// Пример: backup_20260830150405_a1b2c3d4.bin
func generateStorageName(originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	name := strings.TrimSuffix(originalFilename, ext)

	name = sanitize(name)
	if len(name) > 50 {
		name = name[:50]
	}

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8] // Короткий UUID для уникальности

	if ext != "" {
		return fmt.Sprintf("%s_%s_%s%s", name, ts, uid, ext)
	}
	return fmt.Sprintf("%s_%s_%s", name, ts, uid)
}

// sanitize убирает небезопасные символы из строки для использования в имени файла.
// Оставляет только буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' ||
			(r >= 0x0400 && r <= 0x04FF) { // Кириллица
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ Store = (*LocalStore)(nil)

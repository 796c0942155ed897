package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// TestLocalStore_Save проверяет запись блоба: содержимое, размер,
// контрольная сумма, формат имени.
func TestLocalStore_Save(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("ошибка создания хранилища: %v", err)
	}

	content := []byte("зашифрованное содержимое архива")
	res, err := s.Save(context.Background(), strings.NewReader(string(content)), "backup.bin")
	if err != nil {
		t.Fatalf("ошибка Save: %v", err)
	}

	if res.Size != int64(len(content)) {
		t.Errorf("ожидался размер %d, получен %d", len(content), res.Size)
	}

	sum := sha256.Sum256(content)
	if res.Checksum != hex.EncodeToString(sum[:]) {
		t.Errorf("неверная контрольная сумма: %s", res.Checksum)
	}

	// Формат: {name}_{timestamp}_{shortuuid}{ext}
	pattern := regexp.MustCompile(`^backup_\d{14}_[0-9a-f]{8}\.bin$`)
	if !pattern.MatchString(res.StoragePath) {
		t.Errorf("неверный формат имени: %s", res.StoragePath)
	}

	// Файл на диске содержит исходные данные
	data, err := os.ReadFile(filepath.Join(dir, res.StoragePath))
	if err != nil {
		t.Fatalf("блоб не записан на диск: %v", err)
	}
	if string(data) != string(content) {
		t.Error("содержимое блоба не совпадает с исходным")
	}

	// Temp файлов не остаётся
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("остался временный файл: %s", e.Name())
		}
	}
}

// TestGenerateStorageName проверяет санитизацию имён файлов.
func TestGenerateStorageName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		prefix   string
		ext      string
	}{
		{"обычное имя", "report.pdf", "report_", ".pdf"},
		{"кириллица", "отчёт.enc", "отчёт_", ".enc"},
		{"без расширения", "archive", "archive_", ""},
		{"опасные символы", "../../etc/passwd", "etcpasswd_", ""},
		{"пробелы и скобки", "my file (1).bin", "myfile1_", ".bin"},
		{"только мусор", "###.dat", "file_", ".dat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := generateStorageName(tt.filename)
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("ожидался префикс %q, получено %q", tt.prefix, got)
			}
			if tt.ext != "" && !strings.HasSuffix(got, tt.ext) {
				t.Errorf("ожидалось расширение %q, получено %q", tt.ext, got)
			}
			if strings.ContainsAny(got, "/\\") {
				t.Errorf("имя содержит разделители пути: %q", got)
			}
		})
	}
}

// TestLocalStore_Serve проверяет отдачу блоба и защиту от path traversal.
func TestLocalStore_Serve(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("ошибка создания хранилища: %v", err)
	}

	content := "данные блоба"
	res, err := s.Save(context.Background(), strings.NewReader(content), "data.bin")
	if err != nil {
		t.Fatalf("ошибка Save: %v", err)
	}

	t.Run("существующий блоб", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/uploads/"+res.StoragePath, nil)

		if err := s.Serve(w, r, res.StoragePath); err != nil {
			t.Fatalf("ошибка Serve: %v", err)
		}
		if w.Code != http.StatusOK {
			t.Errorf("ожидался статус 200, получен %d", w.Code)
		}
		if w.Body.String() != content {
			t.Error("тело ответа не совпадает с содержимым блоба")
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
			t.Errorf("ожидался Content-Type application/octet-stream, получен %s", ct)
		}
	})

	t.Run("несуществующий блоб", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/uploads/nope.bin", nil)

		if err := s.Serve(w, r, "nope.bin"); err != ErrNotFound {
			t.Errorf("ожидался ErrNotFound, получено %v", err)
		}
	})

	t.Run("path traversal", func(t *testing.T) {
		// Файл за пределами директории данных
		outside := filepath.Join(filepath.Dir(dir), "secret.txt")
		if err := os.WriteFile(outside, []byte("секрет"), 0o600); err != nil {
			t.Fatalf("ошибка подготовки файла: %v", err)
		}

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/uploads/x", nil)

		if err := s.Serve(w, r, "../secret.txt"); err != ErrNotFound {
			t.Errorf("traversal должен давать ErrNotFound, получено %v", err)
		}
	})
}

// TestLocalStore_Delete проверяет удаление блоба,
// включая идемпотентность при отсутствии файла.
func TestLocalStore_Delete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("ошибка создания хранилища: %v", err)
	}

	res, err := s.Save(context.Background(), strings.NewReader("x"), "del.bin")
	if err != nil {
		t.Fatalf("ошибка Save: %v", err)
	}

	if err := s.Delete(context.Background(), res.StoragePath); err != nil {
		t.Fatalf("ошибка Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, res.StoragePath)); !os.IsNotExist(err) {
		t.Error("блоб не удалён с диска")
	}

	// Повторное удаление не должно быть ошибкой
	if err := s.Delete(context.Background(), res.StoragePath); err != nil {
		t.Errorf("повторное удаление вернуло ошибку: %v", err)
	}
}

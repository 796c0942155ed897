package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestLevelForStatus проверяет подбор уровня логирования по статусу.
func TestLevelForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{http.StatusOK, slog.LevelInfo},
		{http.StatusNoContent, slog.LevelInfo},
		{http.StatusNotFound, slog.LevelWarn},
		{http.StatusForbidden, slog.LevelWarn},
		{http.StatusInternalServerError, slog.LevelError},
		{http.StatusServiceUnavailable, slog.LevelError},
	}

	for _, tt := range tests {
		if got := levelForStatus(tt.status); got != tt.want {
			t.Errorf("levelForStatus(%d) = %v, ожидалось %v", tt.status, got, tt.want)
		}
	}
}

// TestRequestLogger проверяет запись в лог: сообщение, статус,
// объём ответа, query-параметры.
func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("нет"))
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/files?wallet=0xAbCd", nil)
	RequestLogger(logger)(next).ServeHTTP(w, r)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("лог не JSON: %v", err)
	}

	if entry["msg"] != "Запрос обработан" {
		t.Errorf("неверное сообщение: %v", entry["msg"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("для 404 ожидался уровень WARN, получен %v", entry["level"])
	}
	if entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("неверный статус: %v", entry["status"])
	}
	if entry["bytes"] != float64(len("нет")) {
		t.Errorf("неверный объём ответа: %v", entry["bytes"])
	}
	if entry["query"] != "wallet=0xAbCd" {
		t.Errorf("query-параметры не записаны: %v", entry["query"])
	}
	if entry["path"] != "/api/files" {
		t.Errorf("неверный путь: %v", entry["path"])
	}
}

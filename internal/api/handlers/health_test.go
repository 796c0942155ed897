package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakePinger — StorePinger с управляемым результатом.
type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

// fakeDeps — DependencyChecker с фиксированным состоянием зависимостей.
type fakeDeps struct {
	state map[string]bool
}

func (d *fakeDeps) Health() map[string]bool { return d.state }

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("тело ответа не JSON: %v", err)
	}
	return resp
}

// TestHealth проверяет liveness endpoint.
func TestHealth(t *testing.T) {
	h := NewHealthHandler(t.TempDir(), nil, nil)

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", w.Code)
	}
	resp := decodeHealth(t, w)
	if resp["status"] != "ok" || resp["service"] != "archive-element" {
		t.Errorf("неожиданный ответ: %v", resp)
	}
}

// TestReady проверяет readiness endpoint во всех комбинациях проверок.
func TestReady(t *testing.T) {
	t.Run("всё доступно", func(t *testing.T) {
		h := NewHealthHandler(t.TempDir(), &fakePinger{},
			&fakeDeps{state: map[string]bool{"s3": true}})

		w := httptest.NewRecorder()
		h.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("ожидался статус 200, получен %d", w.Code)
		}
		resp := decodeHealth(t, w)
		if resp["status"] != "ok" {
			t.Errorf("ожидался статус ok, получен %v", resp["status"])
		}
		checks := resp["checks"].(map[string]any)
		for _, name := range []string{"filesystem", "metastore", "dependencies"} {
			if checks[name] == nil {
				t.Errorf("отсутствует проверка %s", name)
			}
		}
	})

	t.Run("хранилище недоступно", func(t *testing.T) {
		h := NewHealthHandler(t.TempDir(),
			&fakePinger{err: errors.New("нет соединения")}, nil)

		w := httptest.NewRecorder()
		h.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("ожидался статус 503, получен %d", w.Code)
		}
	})

	t.Run("зависимость недоступна", func(t *testing.T) {
		h := NewHealthHandler(t.TempDir(), nil,
			&fakeDeps{state: map[string]bool{"s3": false}})

		w := httptest.NewRecorder()
		h.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("ожидался статус 503, получен %d", w.Code)
		}
		resp := decodeHealth(t, w)
		checks := resp["checks"].(map[string]any)
		depsCheck := checks["dependencies"].(map[string]any)
		if depsCheck["status"] != "fail" {
			t.Errorf("ожидался статус fail, получен %v", depsCheck["status"])
		}
	})

	t.Run("без опциональных проверок", func(t *testing.T) {
		// JSON-бэкенд + local: только файловая система
		h := NewHealthHandler(t.TempDir(), nil, nil)

		w := httptest.NewRecorder()
		h.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		if w.Code != http.StatusOK {
			t.Errorf("ожидался статус 200, получен %d", w.Code)
		}
	})
}

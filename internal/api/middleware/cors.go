// cors.go — middleware контроля CORS по allow-list.
//
// Запросы без заголовка Origin (curl, SDK, server-to-server) пропускаются
// без проверки. Запросы с Origin из allow-list получают CORS-заголовки.
// Все остальные отклоняются с 403 в стандартном формате ошибки.
package middleware

import (
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/archive-element/internal/api/errors"
)

// CORS — middleware проверки origin по allow-list.
type CORS struct {
	// allowed — множество разрешённых origins (в нижнем регистре)
	allowed map[string]bool
}

// NewCORS создаёт middleware из списка разрешённых origins.
func NewCORS(origins []string) *CORS {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(o), "/"))
		if o != "" {
			allowed[o] = true
		}
	}
	return &CORS{allowed: allowed}
}

// Allowed проверяет, входит ли origin в allow-list.
func (c *CORS) Allowed(origin string) bool {
	return c.allowed[strings.ToLower(strings.TrimSuffix(origin, "/"))]
}

// Handler возвращает HTTP middleware для проверки CORS.
func (c *CORS) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Не-браузерные клиенты не присылают Origin — пропускаем
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !c.Allowed(origin) {
				apierrors.OriginForbidden(w, "Origin не входит в список разрешённых")
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")

			// Preflight
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

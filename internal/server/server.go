// Пакет server — HTTP-сервер Archive Element: маршрутизация,
// middleware, опциональный TLS и graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apierrors "github.com/bigkaa/archive-element/internal/api/errors"
	"github.com/bigkaa/archive-element/internal/api/handlers"
	"github.com/bigkaa/archive-element/internal/api/middleware"
	"github.com/bigkaa/archive-element/internal/config"
)

// Server — HTTP-сервер Archive Element.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	archives *handlers.ArchivesHandler,
	blobs *handlers.BlobsHandler,
	health *handlers.HealthHandler,
) *Server {
	router := NewRouter(cfg, logger, archives, blobs, health)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Настройка TLS
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер со всеми маршрутами и middleware.
// Вынесен отдельно от New для использования в тестах.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	archives *handlers.ArchivesHandler,
	blobs *handlers.BlobsHandler,
	health *handlers.HealthHandler,
) http.Handler {
	router := chi.NewRouter()

	// Middleware: логирование → метрики → CORS
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.NewCORS(cfg.CORSOrigins).Handler())

	// Health и метрики
	router.Get("/health", health.Health)
	router.Get("/health/ready", health.Ready)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API архивов
	router.Post("/api/upload", archives.Upload)
	router.Get("/api/files", archives.List)
	router.Get("/api/files/{id}", archives.Get)

	// Прямой доступ к блобам по имени в хранилище
	router.Get("/uploads/{name}", blobs.Get)

	// Немаршрутизированные запросы — структурированный 404
	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.WriteError(w, http.StatusMethodNotAllowed, apierrors.CodeValidationError, "Метод не поддерживается")
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// из конфигурации.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("tls", s.cfg.TLSCert != ""),
		)

		var err error
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}

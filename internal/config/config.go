// Пакет config — загрузка и валидация конфигурации Archive Element
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// defaultCORSOrigins — фиксированный allow-list origins для браузерных
// клиентов (dev-фронтенды). Расширяется через AE_CORS_ORIGINS.
var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// Бэкенды хранилища метаданных.
const (
	StoreBackendJSON     = "json"
	StoreBackendPostgres = "postgres"
)

// Бэкенды хранилища блобов.
const (
	BlobBackendLocal = "local"
	BlobBackendS3    = "s3"
)

// Config содержит все параметры конфигурации Archive Element.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории хранения блобов
	DataDir string
	// Путь к JSON-файлу метаданных (только для json backend)
	MetaPath string
	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64
	// Итоговый allow-list CORS origins (дефолтные + AE_CORS_ORIGINS, без дублей)
	CORSOrigins []string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
	// Путь к TLS сертификату (опционально)
	TLSCert string
	// Путь к TLS приватному ключу (опционально)
	TLSKey string

	// Бэкенд хранилища метаданных: json или postgres
	StoreBackend string
	// Параметры PostgreSQL (обязательны при StoreBackend=postgres)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// Бэкенд хранилища блобов: local или s3
	BlobBackend string
	// Параметры S3/MinIO (обязательны при BlobBackend=s3)
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя вершины графа (владелец пода), DEPHEALTH_NAME
	DephealthName string
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// AE_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("AE_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("AE_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("AE_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// AE_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("AE_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// AE_META_PATH — путь к JSON-файлу метаданных
	// (по умолчанию {AE_DATA_DIR}/archives.json)
	cfg.MetaPath = getEnvDefault("AE_META_PATH", filepath.Join(cfg.DataDir, "archives.json"))

	// AE_MAX_UPLOAD_MB — лимит размера файла в мегабайтах (по умолчанию 100 MiB)
	maxUploadMB, err := getEnvInt64("AE_MAX_UPLOAD_MB", 100)
	if err != nil {
		return nil, fmt.Errorf("AE_MAX_UPLOAD_MB: %w", err)
	}
	if maxUploadMB <= 0 {
		return nil, fmt.Errorf("AE_MAX_UPLOAD_MB: значение должно быть положительным")
	}
	cfg.MaxUploadSize = maxUploadMB << 20

	// AE_CORS_ORIGINS — дополнительные origins через запятую
	cfg.CORSOrigins = mergeOrigins(defaultCORSOrigins, os.Getenv("AE_CORS_ORIGINS"))

	// AE_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("AE_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("AE_LOG_LEVEL: %w", err)
	}

	// AE_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("AE_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AE_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// AE_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("AE_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AE_SHUTDOWN_TIMEOUT: %w", err)
	}

	// AE_TLS_CERT / AE_TLS_KEY — опциональны, но только парой
	cfg.TLSCert = getEnvDefault("AE_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("AE_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("AE_TLS_CERT и AE_TLS_KEY должны быть заданы вместе")
	}

	// AE_STORE_BACKEND — бэкенд метаданных (по умолчанию json)
	cfg.StoreBackend = getEnvDefault("AE_STORE_BACKEND", StoreBackendJSON)
	switch cfg.StoreBackend {
	case StoreBackendJSON:
		// параметры БД не нужны
	case StoreBackendPostgres:
		if err := loadDBConfig(cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("AE_STORE_BACKEND: недопустимое значение %q, допустимые: json, postgres", cfg.StoreBackend)
	}

	// AE_BLOB_BACKEND — бэкенд блобов (по умолчанию local)
	cfg.BlobBackend = getEnvDefault("AE_BLOB_BACKEND", BlobBackendLocal)
	switch cfg.BlobBackend {
	case BlobBackendLocal:
		// достаточно AE_DATA_DIR
	case BlobBackendS3:
		if err := loadS3Config(cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("AE_BLOB_BACKEND: недопустимое значение %q, допустимые: local, s3", cfg.BlobBackend)
	}

	// AE_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("AE_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AE_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// AE_DEPHEALTH_GROUP — имя группы в метриках topologymetrics
	cfg.DephealthGroup = getEnvDefault("AE_DEPHEALTH_GROUP", "archive-element")

	// DEPHEALTH_NAME — имя владельца пода для метки name в topologymetrics
	cfg.DephealthName = getEnvDefault("DEPHEALTH_NAME", "archive-element")

	return cfg, nil
}

// loadDBConfig загружает параметры подключения к PostgreSQL.
func loadDBConfig(cfg *Config) error {
	var err error

	cfg.DBHost, err = getEnvRequired("AE_DB_HOST")
	if err != nil {
		return err
	}

	cfg.DBPort, err = getEnvInt("AE_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("AE_DB_PORT: %w", err)
	}

	cfg.DBName, err = getEnvRequired("AE_DB_NAME")
	if err != nil {
		return err
	}

	cfg.DBUser, err = getEnvRequired("AE_DB_USER")
	if err != nil {
		return err
	}

	cfg.DBPassword, err = getEnvRequired("AE_DB_PASSWORD")
	if err != nil {
		return err
	}

	cfg.DBSSLMode = getEnvDefault("AE_DB_SSL_MODE", "disable")
	return nil
}

// loadS3Config загружает параметры подключения к S3/MinIO.
func loadS3Config(cfg *Config) error {
	var err error

	cfg.S3Endpoint, err = getEnvRequired("AE_S3_ENDPOINT")
	if err != nil {
		return err
	}

	cfg.S3AccessKey, err = getEnvRequired("AE_S3_ACCESS_KEY")
	if err != nil {
		return err
	}

	cfg.S3SecretKey, err = getEnvRequired("AE_S3_SECRET_KEY")
	if err != nil {
		return err
	}

	cfg.S3Bucket, err = getEnvRequired("AE_S3_BUCKET")
	if err != nil {
		return err
	}

	cfg.S3Region = getEnvDefault("AE_S3_REGION", "")

	useSSL := getEnvDefault("AE_S3_USE_SSL", "false")
	cfg.S3UseSSL, err = strconv.ParseBool(useSSL)
	if err != nil {
		return fmt.Errorf("AE_S3_USE_SSL: некорректное булево значение: %q", useSSL)
	}

	return nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// mergeOrigins объединяет дефолтный allow-list с origins из переменной
// окружения (через запятую). Пустые элементы отбрасываются, дубли
// удаляются, порядок сохраняется.
func mergeOrigins(defaults []string, extra string) []string {
	seen := make(map[string]bool, len(defaults))
	result := make([]string, 0, len(defaults))

	add := func(origin string) {
		origin = strings.TrimSpace(origin)
		origin = strings.TrimSuffix(origin, "/")
		if origin == "" || seen[origin] {
			return
		}
		seen[origin] = true
		result = append(result, origin)
	}

	for _, o := range defaults {
		add(o)
	}
	for _, o := range strings.Split(extra, ",") {
		add(o)
	}

	return result
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// postgres.go — реализация Store поверх PostgreSQL (pgx).
//
// Альтернативный бэкенд для многоэкземплярного развёртывания:
// JSON-файл не защищён от конкурирующих процессов, реляционная
// таблица — защищена. Чистый SQL через pgxpool, без ORM.
package metastore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // драйвер pgx5 для миграций
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/archive-element/internal/config"
	"github.com/bigkaa/archive-element/internal/domain/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// archiveColumns — список столбцов таблицы archives для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const archiveColumns = `id, name, size, mime_type, hash, wallet_address,
	storage_path, checksum, created_at`

// PostgresStore — хранилище записей в таблице archives.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore подключается к PostgreSQL, применяет миграции
// и возвращает готовое хранилище.
func NewPostgresStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*PostgresStore, error) {
	if err := migrateDB(cfg, logger); err != nil {
		return nil, err
	}

	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &PostgresStore{
		pool:   pool,
		logger: logger.With(slog.String("component", "metastore")),
	}, nil
}

// connect создаёт пул подключений к PostgreSQL и проверяет его ping'ом.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
	)

	return pool, nil
}

// migrateDB применяет SQL-миграции из embedded FS к базе данных.
// Использует golang-migrate с драйвером pgx5.
func migrateDB(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	dbURL := fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode,
	)

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}

// Close закрывает пул подключений.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping проверяет доступность базы (для readiness probe).
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Insert добавляет запись в таблицу archives.
func (s *PostgresStore) Insert(ctx context.Context, rec *model.ArchiveRecord) error {
	query := `
		INSERT INTO archives (id, name, size, mime_type, hash, wallet_address,
			storage_path, checksum, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Name, rec.Size, rec.MimeType, rec.Hash, rec.WalletAddress,
		rec.StoragePath, rec.Checksum, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка вставки записи: %w", err)
	}
	return nil
}

// List возвращает записи новые первыми, с опциональным фильтром
// по адресу кошелька (регистронезависимое точное совпадение).
// seq монотонно растёт при вставке, поэтому ORDER BY seq DESC
// повторяет порядок "новые сверху" JSON-хранилища даже при
// совпадающих created_at.
func (s *PostgresStore) List(ctx context.Context, wallet string) ([]*model.ArchiveRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM archives ORDER BY seq DESC`, archiveColumns)
	args := []any{}
	if wallet != "" {
		query = fmt.Sprintf(
			`SELECT %s FROM archives WHERE LOWER(wallet_address) = LOWER($1) ORDER BY seq DESC`,
			archiveColumns,
		)
		args = append(args, wallet)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки записей: %w", err)
	}
	defer rows.Close()

	var result []*model.ArchiveRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	return result, nil
}

// GetByID возвращает запись по id или ErrNotFound.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*model.ArchiveRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM archives WHERE id = $1`, archiveColumns)

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Count возвращает количество записей.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM archives`).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей: %w", err)
	}
	return total, nil
}

// scanRecord сканирует одну строку archives в ArchiveRecord.
func scanRecord(row pgx.Row) (*model.ArchiveRecord, error) {
	rec := &model.ArchiveRecord{}
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Size, &rec.MimeType, &rec.Hash, &rec.WalletAddress,
		&rec.StoragePath, &rec.Checksum, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
	}
	return rec, nil
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ Store = (*PostgresStore)(nil)

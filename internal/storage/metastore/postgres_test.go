package metastore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/archive-element/internal/config"
	"github.com/bigkaa/archive-element/internal/domain/model"
)

// setupPostgresStore запускает PostgreSQL в Docker-контейнере через
// testcontainers и возвращает готовое хранилище с применёнными миграциями.
func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("archive_test"),
		postgres.WithUsername("archive"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		t.Fatalf("Неверный port контейнера: %v", err)
	}

	cfg := &config.Config{
		StoreBackend: config.StoreBackendPostgres,
		DBHost:       host,
		DBPort:       portNum,
		DBName:       "archive_test",
		DBUser:       "archive",
		DBPassword:   "test-password",
		DBSSLMode:    "disable",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := NewPostgresStore(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Не удалось создать PostgresStore: %v", err)
	}
	t.Cleanup(store.Close)

	return store
}

// pgRecord создаёт запись для интеграционных тестов.
func pgRecord(wallet string) *model.ArchiveRecord {
	rec := &model.ArchiveRecord{
		ID:          uuid.New().String(),
		Name:        "backup.bin",
		Size:        1024,
		MimeType:    "application/octet-stream",
		Hash:        "hash-" + uuid.New().String()[:8],
		StoragePath: "backup_20260830120000_" + uuid.New().String()[:8] + ".bin",
		Checksum:    "cafebabe",
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	if wallet != "" {
		rec.WalletAddress = &wallet
	}
	return rec
}

// TestPostgresStore_InsertAndGet проверяет вставку и чтение записи.
func TestPostgresStore_InsertAndGet(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	rec := pgRecord("0xAbCd")
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("ошибка Insert: %v", err)
	}

	got, err := store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ошибка GetByID: %v", err)
	}
	if got.Name != rec.Name || got.Size != rec.Size || got.Hash != rec.Hash {
		t.Errorf("запись прочитана с искажениями: %+v", got)
	}
	if got.WalletAddress == nil || *got.WalletAddress != "0xAbCd" {
		t.Errorf("неверный кошелёк: %v", got.WalletAddress)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("created_at: ожидалось %v, получено %v", rec.CreatedAt, got.CreatedAt)
	}

	if _, err := store.GetByID(ctx, uuid.New().String()); err != ErrNotFound {
		t.Errorf("ожидался ErrNotFound, получено %v", err)
	}
}

// TestPostgresStore_ListOrder проверяет порядок "новые сверху"
// и фильтрацию по кошельку.
func TestPostgresStore_ListOrder(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	var ids []string
	wallets := []string{"0xAAAA", "0xaaaa", "0xBBBB", ""}
	for _, w := range wallets {
		rec := pgRecord(w)
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("ошибка Insert: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("ошибка List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("ожидалось 4 записи, получено %d", len(all))
	}
	// Последняя вставленная — первая в списке
	for i := range ids {
		if all[i].ID != ids[len(ids)-1-i] {
			t.Fatalf("нарушен порядок записей: позиция %d = %s", i, all[i].ID)
		}
	}

	// Фильтр по кошельку — регистронезависимый, записи без кошелька
	// не попадают
	filtered, err := store.List(ctx, "0xAaAa")
	if err != nil {
		t.Fatalf("ошибка List с фильтром: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("фильтр по кошельку: ожидалось 2 записи, получено %d", len(filtered))
	}

	none, err := store.List(ctx, "0xNONE")
	if err != nil {
		t.Fatalf("ошибка List с фильтром: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ожидался пустой результат, получено %d записей", len(none))
	}
}

// TestPostgresStore_Count проверяет подсчёт записей и ping.
func TestPostgresStore_Count(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ошибка Ping: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.Insert(ctx, pgRecord(fmt.Sprintf("0x%04d", i))); err != nil {
			t.Fatalf("ошибка Insert: %v", err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("ошибка Count: %v", err)
	}
	if count != 3 {
		t.Errorf("ожидалось 3 записи, получено %d", count)
	}
}

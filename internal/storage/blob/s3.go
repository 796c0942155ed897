// s3.go — хранилище блобов в бакете MinIO/S3.
// Используется при AE_BLOB_BACKEND=s3; локальный диск при этом не нужен,
// что позволяет запускать несколько экземпляров сервиса.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bigkaa/archive-element/internal/config"
)

// S3Store — управление блобами в бакете S3.
type S3Store struct {
	client *minio.Client
	bucket string
	region string
}

// NewS3Store создаёт клиент MinIO из конфигурации.
func NewS3Store(cfg *config.Config) (*S3Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	return &S3Store{
		client: client,
		bucket: cfg.S3Bucket,
		region: cfg.S3Region,
	}, nil
}

// EnsureBucket проверяет существование бакета и создаёт его при отсутствии.
// Вызывается один раз при старте.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("ошибка проверки бакета %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("ошибка создания бакета %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Save загружает блоб в бакет с подсчётом SHA-256 на лету.
// Размер заранее неизвестен (streaming из multipart), поэтому
// PutObject вызывается с size = -1 (multipart upload на стороне SDK).
func (s *S3Store) Save(ctx context.Context, reader io.Reader, originalFilename string) (*SaveResult, error) {
	objectKey := generateStorageName(originalFilename)

	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	info, err := s.client.PutObject(ctx, s.bucket, objectKey, tee, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки объекта %s: %w", objectKey, err)
	}

	return &SaveResult{
		StoragePath: objectKey,
		Size:        info.Size,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Serve стримит объект из бакета клиенту.
func (s *S3Store) Serve(w http.ResponseWriter, r *http.Request, storagePath string) error {
	obj, err := s.client.GetObject(r.Context(), s.bucket, storagePath, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("ошибка получения объекта %s: %w", storagePath, err)
	}
	defer obj.Close()

	// GetObject ленивый: отсутствие объекта проявляется на Stat
	stat, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка получения информации об объекте %s: %w", storagePath, err)
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", stat.Size))
	if _, err := io.Copy(w, obj); err != nil {
		// Заголовки уже отправлены, менять статус поздно
		return fmt.Errorf("ошибка стриминга объекта %s: %w", storagePath, err)
	}
	return nil
}

// Delete удаляет объект из бакета.
// Отсутствие объекта не считается ошибкой.
func (s *S3Store) Delete(ctx context.Context, storagePath string) error {
	err := s.client.RemoveObject(ctx, s.bucket, storagePath, minio.RemoveObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("ошибка удаления объекта %s: %w", storagePath, err)
	}
	return nil
}

// HealthURL возвращает URL liveness-проверки MinIO для мониторинга
// зависимостей через topologymetrics.
func (s *S3Store) HealthURL() string {
	scheme := "http"
	if s.client.EndpointURL().Scheme == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/minio/health/live", scheme, s.client.EndpointURL().Host)
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ Store = (*S3Store)(nil)

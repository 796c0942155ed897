// Пакет model — доменные модели Archive Element.
// ArchiveRecord — единая структура метаданных архива, используется
// как in-memory представление и как элемент JSON-файла хранилища.
package model

import (
	"strings"
	"time"
)

// ArchiveRecord — метаданные одного загруженного зашифрованного блоба.
// Записи неизменяемы после создания: нет операций update/delete.
type ArchiveRecord struct {
	// ID — уникальный идентификатор записи (UUID v4)
	ID string `json:"id"`

	// Name — оригинальное имя файла при загрузке
	Name string `json:"name"`

	// Size — размер блоба в байтах
	Size int64 `json:"size"`

	// MimeType — MIME-тип, заявленный клиентом
	// (application/octet-stream если не указан)
	MimeType string `json:"mimeType"`

	// Hash — клиентский идентификатор содержимого.
	// Непрозрачен для сервера, никак не проверяется.
	Hash string `json:"hash"`

	// WalletAddress — опциональный адрес кошелька клиента.
	// Используется только для фильтрации. null если не передан.
	WalletAddress *string `json:"walletAddress"`

	// StoragePath — имя блоба в хранилище (относительно AE_DATA_DIR
	// либо ключ объекта в S3). Формат: {name}_{timestamp}_{shortuuid}.{ext}
	StoragePath string `json:"storagePath"`

	// Checksum — SHA-256 содержимого, вычисленный при записи блоба.
	// Записывается для диагностики, с клиентским Hash не сверяется.
	Checksum string `json:"checksum"`

	// CreatedAt — дата и время загрузки (UTC)
	CreatedAt time.Time `json:"createdAt"`
}

// MatchesWallet проверяет соответствие записи фильтру по адресу кошелька.
// Сравнение регистронезависимое, точное. Запись без адреса
// не соответствует непустому фильтру.
func (r *ArchiveRecord) MatchesWallet(wallet string) bool {
	if wallet == "" {
		return true
	}
	if r.WalletAddress == nil {
		return false
	}
	return strings.EqualFold(*r.WalletAddress, wallet)
}

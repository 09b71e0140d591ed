// Package coldstorage — адаптеры долговременного хранилища архивов.
// Провайдер выбирается по имени один раз при старте процесса; конвейер
// архивации работает только с этим узким контрактом.
package coldstorage

import (
	"context"
	"fmt"
	"time"
)

// Provider — контракт холодного хранилища
type Provider interface {
	// Name возвращает имя провайдера из конфигурации; записи архивов
	// помечаются им, чтобы было видно, в каком бэкенде лежит архив
	Name() string
	// Upload загружает архив и возвращает публичный URL
	Upload(ctx context.Context, path string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
	// SignedURL выдает короткоживущую подписанную ссылку на скачивание
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// New создает провайдера по имени из конфигурации
func New(cfg *Config) (Provider, error) {
	switch cfg.Provider {
	case "s3", "yandex":
		return newS3Provider(cfg)
	default:
		return nil, fmt.Errorf("unknown cold storage provider: %s", cfg.Provider)
	}
}

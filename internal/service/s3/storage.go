// storage.go
package s3

import (
	"context"
	"io"
)

// S3Object определяет интерфейс для объектов S3
type S3Object interface {
	io.ReadCloser
	ContentLength() int64
	ContentType() string
}

// s3Object реализует интерфейс S3Object
type s3Object struct {
	io.ReadCloser
	contentLength int64
	contentType   string
}

func (o *s3Object) ContentLength() int64 {
	return o.contentLength
}

func (o *s3Object) ContentType() string {
	return o.contentType
}

// Storage — контракт основного блоб-хранилища. Пути объектов генерируются
// как псевдослучайные имена в пределах измерения/папки и никогда не
// переиспользуются между разными логическими файлами.
type Storage interface {
	// UploadBytes загружает данные и возвращает публичный URL объекта
	UploadBytes(key string, data []byte) (string, error)
	GetObject(ctx context.Context, key string) (S3Object, error)
	// CopyObject копирует объект внутри бакета и возвращает URL копии.
	// Используется каскадным копированием: у копии файла всегда свой блоб.
	CopyObject(ctx context.Context, srcKey, dstKey string) (string, error)
	DeleteObject(key string) error
	// DeleteObjects удаляет набор объектов best-effort: ошибка по одному
	// ключу логируется и не прерывает остальные
	DeleteObjects(keys []string)
	ObjectURL(key string) string
}

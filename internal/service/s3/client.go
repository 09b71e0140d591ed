package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	defaultTimeout  = 30 * time.Second
	uploadTimeout   = 10 * time.Minute
	downloadTimeout = 10 * time.Minute
)

// Client предоставляет методы для работы с S3-совместимым хранилищем
type Client struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewClient создает новый экземпляр клиента S3
func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, fmt.Errorf("missing required configuration: accessKeyID, secretAccessKey, and bucket are required")
	}

	// Создаем конфигурацию AWS
	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(conf.Endpoint),
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	s3Client := &Client{
		client:   client,
		bucket:   conf.Bucket,
		endpoint: strings.TrimSuffix(conf.Endpoint, "/"),
	}

	// Проверяем подключение к бакету
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := s3Client.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return s3Client, nil
}

// ObjectURL возвращает публичный URL объекта
func (h *Client) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", h.endpoint, h.bucket, key)
}

// UploadBytes загружает байты в S3 и возвращает публичный URL объекта
func (h *Client) UploadBytes(key string, data []byte) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload data to S3: %w", err)
	}

	return h.ObjectURL(key), nil
}

// GetObject получает объект из S3
func (h *Client) GetObject(ctx context.Context, key string) (S3Object, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	}

	result, err := h.client.GetObject(ctx, input)
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("object not found: %s", key)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return &s3Object{
		ReadCloser:    result.Body,
		contentLength: aws.ToInt64(result.ContentLength),
		contentType:   aws.ToString(result.ContentType),
	}, nil
}

// CopyObject копирует объект внутри бакета и возвращает URL копии
func (h *Client) CopyObject(ctx context.Context, srcKey, dstKey string) (string, error) {
	if srcKey == "" || dstKey == "" {
		return "", fmt.Errorf("source and destination keys are required")
	}

	_, err := h.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(h.bucket),
		CopySource: aws.String(fmt.Sprintf("%s/%s", h.bucket, srcKey)),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return "", fmt.Errorf("failed to copy object in S3: %w", err)
	}

	return h.ObjectURL(dstKey), nil
}

// DeleteObject удаляет объект из S3
func (h *Client) DeleteObject(key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	// Проверяем существование объекта перед удалением
	_, err := h.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})

	// Если объект не существует, считаем операцию успешной
	var nsk *types.NoSuchKey
	if err != nil && errors.As(err, &nsk) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to check object existence: %w", err)
	}

	_, err = h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	return nil
}

// DeleteObjects удаляет набор объектов best-effort.
// Ошибка по одному ключу логируется и не прерывает остальные удаления.
func (h *Client) DeleteObjects(keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := h.DeleteObject(key); err != nil {
			log.Printf("Warning: failed to delete object %s from S3: %v", key, err)
		}
	}
}

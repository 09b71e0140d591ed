package coldstorage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Provider реализует Provider поверх любого S3-совместимого бэкенда
type s3Provider struct {
	name     string
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
	endpoint string
}

func newS3Provider(cfg *Config) (*s3Provider, error) {
	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(cfg.Endpoint),
		Region:           cfg.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	return &s3Provider{
		name:     cfg.Provider,
		client:   client,
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.Bucket,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
	}, nil
}

func (p *s3Provider) Name() string {
	return p.name
}

func (p *s3Provider) Upload(ctx context.Context, path string, data []byte) (string, error) {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(path),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload archive to cold storage: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", p.endpoint, p.bucket, path), nil
}

func (p *s3Provider) Delete(ctx context.Context, path string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete archive from cold storage: %w", err)
	}

	return nil
}

func (p *s3Provider) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign archive url: %w", err)
	}

	return req.URL, nil
}

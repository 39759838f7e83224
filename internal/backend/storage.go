package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrStorageDisabled = errors.New("хранилище файлов не настроено")

// StorageConfig — параметры S3-совместимого хранилища бэкенда.
type StorageConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicBaseURL — префикс публичных ссылок, к нему дописывается bucket/key.
	PublicBaseURL string
}

// Storage кладёт объекты в bucket через S3 API и отдаёт их публичные ссылки.
type Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewStorage(ctx context.Context, sc StorageConfig) (*Storage, error) {
	if sc.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if sc.AccessKey == "" || sc.SecretKey == "" {
		return nil, ErrStorageDisabled
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKey, sc.SecretKey, ""),
		),
	}
	if sc.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(sc.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &Storage{
		client:    client,
		bucket:    sc.Bucket,
		publicURL: strings.TrimRight(sc.PublicBaseURL, "/"),
	}, nil
}

// Upload загружает объект и возвращает его публичный адрес.
func (s *Storage) Upload(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key = strings.TrimLeft(key, "/")

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return s.PublicURL(key), nil
}

func (s *Storage) PublicURL(key string) string {
	return PublicObjectURL(s.publicURL, s.bucket, key)
}

// PublicObjectURL собирает публичную ссылку вида {base}/{bucket}/{key}.
func PublicObjectURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.TrimLeft(key, "/")
}

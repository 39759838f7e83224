package services

import (
	"bytes"
	"context"
	"docportal/internal/backend"
	"docportal/internal/logger"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MaxImageSize = 5 << 20

type ObjectUploader interface {
	Upload(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error)
}

type UploadService struct {
	storage ObjectUploader
}

// NewUploadService: при storage == nil загрузка отключена.
func NewUploadService(storage ObjectUploader) *UploadService {
	return &UploadService{storage: storage}
}

// UploadImage проверяет размер и тип и возвращает публичный URL картинки.
func (s *UploadService) UploadImage(ctx context.Context, filename string, size int64, r io.Reader) (string, error) {
	if s.storage == nil {
		return "", backend.ErrStorageDisabled
	}
	if size > MaxImageSize {
		return "", backend.NewValidationError("file", "изображение должно быть не больше 5 МБ")
	}

	var sniff [512]byte
	n, err := io.ReadFull(r, sniff[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	if n == 0 {
		return "", backend.NewValidationError("file", "пустой файл")
	}
	contentType := http.DetectContentType(sniff[:n])
	if !strings.HasPrefix(contentType, "image/") {
		return "", backend.NewValidationError("file", "можно загружать только изображения")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 6 {
		ext = extByType(contentType)
	}
	key := uuid.NewString() + ext

	body := io.MultiReader(bytes.NewReader(sniff[:n]), r)
	url, err := s.storage.Upload(ctx, key, contentType, size, body)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка загрузки изображения", zap.String("key", key), zap.Error(err))
		return "", err
	}
	logger.WithCtx(ctx).Info("Изображение загружено", zap.String("key", key), zap.Int64("size", size))
	return url, nil
}

func extByType(ct string) string {
	switch ct {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

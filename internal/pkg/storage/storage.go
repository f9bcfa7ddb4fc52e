// internal/pkg/storage/storage.go
package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/your-org/cinema-backend/internal/config"
)

// Storage stores uploaded files and returns their public URL
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New picks the backend from STORAGE_PROVIDER
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.External.Storage.Provider {
	case "s3":
		return NewS3Storage(ctx, cfg)
	case "local":
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.External.Storage.Provider)
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// AvatarKey builds the object key for a user's avatar: {prefix}/{userID}_{filename}
func AvatarKey(prefix string, userID uint, filename string) string {
	name := unsafeChars.ReplaceAllString(filepath.Base(filename), "_")
	return fmt.Sprintf("%s/%d_%s", strings.Trim(prefix, "/"), userID, name)
}

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// ValidateImage checks size and extension against the upload config and returns the content type
func ValidateImage(header *multipart.FileHeader, cfg config.UploadConfig) (string, error) {
	if header == nil {
		return "", fmt.Errorf("no file provided")
	}
	if header.Size > cfg.MaxSize {
		return "", fmt.Errorf("file too large: max size is %d bytes", cfg.MaxSize)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	allowed := false
	for _, a := range cfg.AllowedExtensions {
		if strings.EqualFold(a, ext) {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("invalid file type: allowed types are %s", strings.Join(cfg.AllowedExtensions, ", "))
	}

	contentType, ok := contentTypes[ext]
	if !ok {
		contentType = "application/octet-stream"
	}
	return contentType, nil
}

// internal/pkg/storage/local.go
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/your-org/cinema-backend/internal/config"
)

// LocalStorage writes files under STORAGE_LOCAL_PATH, served by the API under /uploads
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates the root directory if needed
func NewLocalStorage(cfg *config.Config) (*LocalStorage, error) {
	root := cfg.External.Storage.LocalPath
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	baseURL := cfg.External.Storage.CDNBaseURL
	if baseURL == "" {
		baseURL = cfg.URL("/uploads")
	}

	return &LocalStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory files are written to
func (l *LocalStorage) Root() string {
	return l.root
}

func (l *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(l.root, clean), nil
}

// Upload writes body to disk and returns its URL
func (l *LocalStorage) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	fullPath, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, body); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return l.URL(key), nil
}

// Delete removes the file; a missing file is not an error
func (l *LocalStorage) Delete(_ context.Context, key string) error {
	fullPath, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// URL returns the public URL of key
func (l *LocalStorage) URL(key string) string {
	return l.baseURL + "/" + strings.TrimLeft(key, "/")
}

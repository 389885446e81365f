package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage on the local filesystem for development
// and tests. Keys map directly to paths under the root directory.
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates a filesystem-backed storage rooted at root.
// Served URLs are baseURL + key.
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root directory: %w", err)
	}
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStorage{root: root, baseURL: baseURL}, nil
}

func (l *LocalStorage) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if _, err := ValidateContentType(contentType); err != nil {
		return "", err
	}

	path := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Join(ErrUploadFailed, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Join(ErrUploadFailed, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", errors.Join(ErrUploadFailed, err)
	}
	return l.URL(key), nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	path := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.Join(ErrObjectNotFound, err)
		}
		return err
	}
	return nil
}

func (l *LocalStorage) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ValidateKey(prefix); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(l.root, filepath.FromSlash(prefix)))
}

func (l *LocalStorage) Exists(ctx context.Context, key string) bool {
	if ValidateKey(key) != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(l.root, filepath.FromSlash(key)))
	return err == nil
}

func (l *LocalStorage) URL(key string) string {
	return l.baseURL + strings.TrimPrefix(key, "/")
}

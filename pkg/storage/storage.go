package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Storage persists generated photos and model training inputs. Keys are
// slash-separated paths scoped per user; see PhotoKey and TrainingInputKey.
type Storage interface {
	// Upload stores the object and returns its public URL.
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)

	// Delete removes a single object. Deleting a missing object is an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every object under the given key prefix,
	// used when a user deletes a model or their account.
	DeletePrefix(ctx context.Context, prefix string) error

	// Exists reports whether the object is present. Fails closed.
	Exists(ctx context.Context, key string) bool

	// URL returns the public URL for a key without checking existence.
	URL(key string) string
}

var (
	ErrInvalidKey             = errors.New("storage: invalid object key")
	ErrUnsupportedContentType = errors.New("storage: unsupported content type")
	ErrObjectNotFound         = errors.New("storage: object not found")
	ErrUploadFailed           = errors.New("storage: upload failed")
)

// allowedContentTypes lists the image formats the generation pipeline
// produces and accepts as training input.
var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ValidateContentType checks that the content type is a supported image
// format and returns its canonical file extension.
func ValidateContentType(contentType string) (string, error) {
	ext, ok := allowedContentTypes[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}
	return ext, nil
}

// ValidateKey rejects empty keys, absolute paths and traversal attempts.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// PhotoKey builds the object key for a generated photo.
func PhotoKey(userID, photoID, ext string) string {
	return fmt.Sprintf("users/%s/photos/%s%s", userID, photoID, ext)
}

// TrainingInputKey builds the object key for an uploaded training selfie.
func TrainingInputKey(userID, modelID, fileID, ext string) string {
	return fmt.Sprintf("users/%s/models/%s/inputs/%s%s", userID, modelID, fileID, ext)
}

// UserPrefix is the key prefix holding everything a user owns.
func UserPrefix(userID string) string {
	return fmt.Sprintf("users/%s/", userID)
}

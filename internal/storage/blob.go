package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists rendered document artifacts. Writes are create-only:
// an artifact written under a key is never overwritten.
type BlobStore interface {
	// Save writes content under key and returns the stored artifact's URL
	Save(ctx context.Context, key string, content []byte) (string, error)
	// Read returns the content stored under key
	Read(ctx context.Context, key string) ([]byte, error)
}

// FileBlobStore is a filesystem-backed BlobStore rooted at a base directory.
type FileBlobStore struct {
	baseDir string
}

// NewFileBlobStore creates a FileBlobStore, creating the base directory if
// needed.
func NewFileBlobStore(baseDir string) (*FileBlobStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document dir: %w", err)
	}
	return &FileBlobStore{baseDir: baseDir}, nil
}

// Save writes content under key. Existing artifacts are never overwritten:
// keys are content-addressed, so a key collision means the identical bytes
// are already stored and the write is a no-op.
func (s *FileBlobStore) Save(_ context.Context, key string, content []byte) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "file://" + path, nil
		}
		return "", fmt.Errorf("failed to create artifact: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return "file://" + path, nil
}

// Read returns the content stored under key
func (s *FileBlobStore) Read(_ context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// resolve maps a key onto the base directory, rejecting path traversal
func (s *FileBlobStore) resolve(key string) (string, error) {
	if strings.Contains(key, "..") || filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid artifact key: %s", key)
	}
	return filepath.Join(s.baseDir, filepath.Clean("/"+key)), nil
}

package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const maxDocumentBytes = 64 << 20

// Storage serves BPX documents from a directory tree laid out as <root>/<bucket>/<path>.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) Fetch(ctx context.Context, bucket, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(bucket, path)
	if err != nil {
		return "", err
	}

	f, err := os.Open(full)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxDocumentBytes+1))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if len(raw) > maxDocumentBytes {
		return "", fmt.Errorf("document %s/%s exceeds %d bytes", bucket, path, maxDocumentBytes)
	}
	return string(raw), nil
}

func (s *Storage) resolve(bucket, path string) (string, error) {
	if strings.TrimSpace(bucket) == "" {
		return "", fmt.Errorf("storage bucket is required")
	}
	bucketDir := filepath.FromSlash(bucket)
	objectPath := filepath.FromSlash(strings.TrimLeft(path, "/"))
	if !filepath.IsLocal(bucketDir) || !filepath.IsLocal(objectPath) {
		return "", fmt.Errorf("storage path escapes bucket: %s/%s", bucket, path)
	}
	return filepath.Join(s.basePath, bucketDir, objectPath), nil
}

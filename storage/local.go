package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects under a directory served as static files.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore stores objects under root and serves them from baseURL.
func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) path(bucket, key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(bucket, "..") || strings.ContainsAny(bucket, `/\`) {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	return filepath.Join(s.root, bucket, clean), nil
}

// Upload implements ObjectStore.
func (s *LocalStore) Upload(_ context.Context, bucket, key string, r io.Reader, _ string) error {
	dst, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create upload directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("write file: %w", err)
	}
	return out.Close()
}

// Delete implements ObjectStore. Deleting a missing object is not an error.
func (s *LocalStore) Delete(_ context.Context, bucket, key string) error {
	dst, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PublicURL implements ObjectStore.
func (s *LocalStore) PublicURL(bucket, key string) string {
	return s.baseURL + "/" + bucket + "/" + strings.TrimLeft(key, "/")
}

package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir stores documents on the local filesystem and links to them under BaseURL.
// Used when no S3 endpoint is configured.
type Dir struct {
	Root    string
	BaseURL string
}

func (d Dir) Put(_ context.Context, key string, data []byte, _ string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("local: create dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("local: write %s: %w", key, err)
	}
	return os.Rename(tmp, path)
}

func (d Dir) URL(_ context.Context, key string) (string, error) {
	if _, err := d.path(key); err != nil {
		return "", err
	}
	return strings.TrimRight(d.BaseURL, "/") + "/files/" + strings.TrimLeft(key, "/"), nil
}

// Delete removes the file for key. A missing file is not an error.
func (d Dir) Delete(_ context.Context, key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("local: remove %s: %w", key, err)
	}
	return nil
}

// Open returns the stored file for key; the HTTP layer serves it under /files.
func (d Dir) Open(key string) (*os.File, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (d Dir) path(key string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(key))
	if clean == "/" {
		return "", errors.New("local: key is required")
	}
	return filepath.Join(d.Root, clean), nil
}

package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("storage: failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) Upload(ctx context.Context, kind PhotoKind, entityID uuid.UUID, filename string, content io.Reader, contentType string) (PhotoRef, error) {
	key := objectKey(kind, entityID, filename)

	fullPath, err := ls.resolve(key)
	if err != nil {
		return PhotoRef{}, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return PhotoRef{}, fmt.Errorf("storage: failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return PhotoRef{}, fmt.Errorf("storage: failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		os.Remove(fullPath)
		return PhotoRef{}, fmt.Errorf("storage: failed to write file: %w", err)
	}

	// Served by the file route on the web server.
	return PhotoRef{Key: key, URL: "/files/" + key}, nil
}

func (ls *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("storage: failed to open file: %w", err)
	}
	return file, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: failed to delete file: %w", err)
	}
	return nil
}

func (ls *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// resolve joins key under basePath and rejects anything that escapes it.
func (ls *LocalStorage) resolve(key string) (string, error) {
	absBase, err := filepath.Abs(ls.basePath)
	if err != nil {
		return "", fmt.Errorf("storage: failed to resolve base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(ls.basePath, key))
	if err != nil {
		return "", fmt.Errorf("storage: failed to resolve file path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: invalid file path: path traversal detected")
	}
	return absPath, nil
}

// objectKey lays out blobs as kind/entity_id/year/month/uuid_filename so
// a record's photos share a prefix.
func objectKey(kind PhotoKind, entityID uuid.UUID, filename string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("%s/%s/%d/%02d/%s_%s",
		kind, entityID, now.Year(), now.Month(), uuid.New(), sanitizeFilename(filename))
}

func sanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "..", "_")
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, filename)
}

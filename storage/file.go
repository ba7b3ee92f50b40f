package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type FileBlob struct {
	FilePath string
}

func NewFileBlob(filePath string) *FileBlob {
	return &FileBlob{FilePath: filePath}
}

func (f *FileBlob) Load(ctx context.Context) ([]byte, error) {
	b, err := os.ReadFile(f.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return b, err
}

// Save replaces the file through a temporary sibling so readers never see a partial write.
func (f *FileBlob) Save(ctx context.Context, data []byte) error {
	dir := filepath.Dir(f.FilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.FilePath)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.FilePath)
}

// Package storage persists snapshots: the latest one as a JSON file and every
// fetched one in a numbered SQLite archive.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/admstats/internal/domain/model"
)

// LatestFile is the name of the current snapshot file inside the data dir.
const LatestFile = "latest.json"

// FileStore keeps the latest snapshot in a single JSON file.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir, creating the directory.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the location of the latest snapshot file.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, LatestFile)
}

// Latest reads the stored snapshot. It returns ErrNoSnapshot when the file
// does not exist.
func (s *FileStore) Latest(ctx context.Context) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", LatestFile, err)
	}
	defer f.Close()

	snap, err := model.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", LatestFile, err)
	}
	return snap, nil
}

// Save replaces the stored snapshot. The file is written next to the target
// and renamed over it, so readers never see a partial file.
func (s *FileStore) Save(ctx context.Context, snap *model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, LatestFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	w := bufio.NewWriter(tmp)
	if err := model.Encode(w, snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the snapshot file name inside the data directory.
const DefaultFileName = "accounts.yaml"

// FileRepository stores the snapshot as a YAML document in one file.
type FileRepository struct {
	path string
	// mu makes Save a critical section so a save-on-exit cannot interleave
	// with a save-after-mutation.
	mu  sync.Mutex
	now func() time.Time
}

// NewFileRepository creates a repository backed by the file at path.
// The file need not exist yet.
func NewFileRepository(path string) (*FileRepository, error) {
	if path == "" {
		return nil, oops.Code("STORE_INVALID_CONFIG").Errorf("snapshot path is required")
	}
	return &FileRepository{path: path, now: time.Now}, nil
}

// Path returns the snapshot file path.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the snapshot. A missing file yields DefaultSnapshot; a file
// that exists but cannot be read or decoded is an error.
func (r *FileRepository) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("STORE_LOAD_FAILED").Wrap(err)
	}

	r.mu.Lock()
	data, err := os.ReadFile(r.path)
	r.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSnapshot(), nil
	}
	if err != nil {
		return nil, oops.Code("STORE_LOAD_FAILED").With("path", r.path).Wrap(err)
	}

	snap, err := decodeDocument(data)
	if err != nil {
		return nil, oops.With("path", r.path).Wrap(err)
	}
	return snap, nil
}

func decodeDocument(data []byte) (*Snapshot, error) {
	var header struct {
		Format string `yaml:"format"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, oops.Code("STORE_CORRUPT").With("operation", "parse yaml").Wrap(err)
	}
	if header.Format == "" {
		return nil, oops.Code("STORE_CORRUPT").Errorf("snapshot document has no format version")
	}
	if err := CheckFormat(header.Format); err != nil {
		return nil, err
	}
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("STORE_CORRUPT").With("operation", "decode document").Wrap(err)
	}
	return doc.snapshot()
}

// Save writes the snapshot to a temporary file next to the target and
// renames it into place.
func (r *FileRepository) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("STORE_SAVE_FAILED").Wrap(err)
	}
	if snap == nil {
		return oops.Code("STORE_INVALID_SNAPSHOT").Errorf("snapshot is required")
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(newDocument(snap, r.now()))
	if err != nil {
		return oops.Code("STORE_SAVE_FAILED").With("operation", "encode").Wrap(err)
	}
	if err := writeFileAtomic(r.path, data); err != nil {
		return oops.Code("STORE_SAVE_FAILED").With("path", r.path).Wrap(err)
	}
	return nil
}

// Close is a no-op; FileRepository holds no open handles between calls.
func (r *FileRepository) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return oops.With("operation", "create directory").Wrap(err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return oops.With("operation", "create temp file").Wrap(err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()         //nolint:errcheck // already failing
			_ = os.Remove(tmpName) //nolint:errcheck // already failing
		}
	}()

	if err = tmp.Chmod(0o600); err != nil {
		return oops.With("operation", "chmod temp file").Wrap(err)
	}
	if _, err = tmp.Write(data); err != nil {
		return oops.With("operation", "write temp file").Wrap(err)
	}
	if err = tmp.Sync(); err != nil {
		return oops.With("operation", "sync temp file").Wrap(err)
	}
	if err = tmp.Close(); err != nil {
		return oops.With("operation", "close temp file").Wrap(err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return oops.With("operation", "rename temp file").Wrap(err)
	}

	return syncDir(dir)
}

// syncDir flushes the directory entry so the rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir) //nolint:gosec // G304: directory of the configured snapshot path
	if err != nil {
		return oops.With("operation", "open directory").Wrap(err)
	}
	defer func() { _ = d.Close() }() //nolint:errcheck // read-only handle
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return oops.With("operation", "sync directory").Wrap(err)
	}
	return nil
}

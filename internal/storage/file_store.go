package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"portfolio/internal/model"
)

const maxRecordBytes = 4 * 1024

// FileStore keeps the count as a one-field JSON document, {"count":N}.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns the persisted record, writing a zero record first when the
// file does not exist yet.
func (s *FileStore) Load(ctx context.Context) (model.VisitorCount, error) {
	if err := ctx.Err(); err != nil {
		return model.VisitorCount{}, err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		rec := model.VisitorCount{}
		if err := s.Save(ctx, rec); err != nil {
			return model.VisitorCount{}, fmt.Errorf("initialize record: %w", err)
		}
		return rec, nil
	}
	if err != nil {
		return model.VisitorCount{}, fmt.Errorf("open record: %w", err)
	}
	defer f.Close()

	data, err := Read(f, 0, maxRecordBytes+1)
	if err != nil {
		return model.VisitorCount{}, err
	}
	if len(data) > maxRecordBytes {
		return model.VisitorCount{}, fmt.Errorf("%w: record exceeds %d bytes", ErrMalformedRecord, maxRecordBytes)
	}

	return decodeRecord(data)
}

// Save replaces the record through a temp file and rename, so readers see
// either the old or the new document.
func (s *FileStore) Save(ctx context.Context, rec model.VisitorCount) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Write(tmp, data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace record: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func decodeRecord(data []byte) (model.VisitorCount, error) {
	var wire struct {
		Count *uint64 `json:"count"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&wire); err != nil {
		return model.VisitorCount{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return model.VisitorCount{}, fmt.Errorf("%w: trailing data after record", ErrMalformedRecord)
	}
	if wire.Count == nil {
		return model.VisitorCount{}, fmt.Errorf("%w: missing count", ErrMalformedRecord)
	}
	return model.VisitorCount{Count: *wire.Count}, nil
}

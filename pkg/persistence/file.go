package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// File stores each document as <dir>/<key>.json and each log as a JSON array
// in <dir>/<name>.json. Every write goes through a synced temp file and a rename.
type File struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
}

// NewFile returns a file store rooted at dir, creating it if needed.
func NewFile(dir string, logger *slog.Logger) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &File{
		dir:    dir,
		logger: logger.With("system", "persistence", "backend", BackendFile),
	}, nil
}

func (f *File) Read(ctx context.Context, key string) (json.RawMessage, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (f *File) Write(ctx context.Context, key string, doc json.RawMessage) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writeAtomic(p, doc)
}

func (f *File) AppendLog(ctx context.Context, name string, entry json.RawMessage) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := readArray(p)
	if err != nil {
		return fmt.Errorf("read log %s: %w", name, err)
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEncode, name, err)
	}
	return f.writeAtomic(p, data)
}

func (f *File) ReadLog(ctx context.Context, name string) ([]json.RawMessage, error) {
	p, err := f.path(name)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := readArray(p)
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", name, err)
	}
	return entries, nil
}

func (f *File) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, filepath.FromSlash(key)+".json"), nil
}

func (f *File) writeAtomic(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	f.logger.Debug("document written", "path", p, "bytes", len(data))
	return nil
}

// readArray returns the entries of a JSON array file. A missing file is an empty log.
func readArray(p string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []json.RawMessage{}, nil
		}
		return nil, err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return entries, nil
}

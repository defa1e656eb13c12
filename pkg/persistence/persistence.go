// Package persistence stores JSON documents by key and append-only JSON logs by name.
//
// Writes are synchronous: once Write or AppendLog returns nil the data survives a restart.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Store is the document and log repository shared by the registry, strategy store,
// skill cache and the improvement and feedback logs.
type Store interface {
	// Read returns the document stored at key, or ErrNotFound.
	Read(ctx context.Context, key string) (json.RawMessage, error)
	// Write replaces the document at key.
	Write(ctx context.Context, key string, doc json.RawMessage) error
	// AppendLog appends entry to the named log.
	AppendLog(ctx context.Context, name string, entry json.RawMessage) error
	// ReadLog returns every entry of the named log in append order.
	ReadLog(ctx context.Context, name string) ([]json.RawMessage, error)
}

// Load decodes the document at key into T. found is false when the key is absent.
func Load[T any](ctx context.Context, s Store, key string) (v T, found bool, err error) {
	raw, err := s.Read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return v, false, nil
		}
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("%w: %s: %w", ErrDecode, key, err)
	}
	return v, true, nil
}

// Save encodes v and writes it at key.
func Save(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEncode, key, err)
	}
	return s.Write(ctx, key, raw)
}

// Append encodes v and appends it to the named log.
func Append(ctx context.Context, s Store, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEncode, name, err)
	}
	return s.AppendLog(ctx, name, raw)
}

// Entries decodes every entry of the named log. Entries that fail to decode are skipped.
func Entries[T any](ctx context.Context, s Store, name string) ([]T, error) {
	raws, err := s.ReadLog(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if json.Unmarshal(raw, &v) == nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

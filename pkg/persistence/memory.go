package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
)

// Memory keeps everything in process. It is not durable across restarts.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
	logs map[string][]json.RawMessage
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]json.RawMessage),
		logs: make(map[string][]json.RawMessage),
	}
}

func (m *Memory) Read(ctx context.Context, key string) (json.RawMessage, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(doc), nil
}

func (m *Memory) Write(ctx context.Context, key string, doc json.RawMessage) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[key] = bytes.Clone(doc)
	return nil
}

func (m *Memory) AppendLog(ctx context.Context, name string, entry json.RawMessage) error {
	if err := validateKey(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs[name] = append(m.logs[name], bytes.Clone(entry))
	return nil
}

func (m *Memory) ReadLog(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := validateKey(name); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.logs[name]
	out := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		out[i] = bytes.Clone(e)
	}
	return out, nil
}

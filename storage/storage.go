package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"dieter"
)

// ErrNotFound is returned by a Blob whose object does not exist yet.
var ErrNotFound = errors.New("object not found")

// Blob is a single stored document.
type Blob interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// RecordLog persists analyzed log entries.
type RecordLog interface {
	Load(ctx context.Context) ([]dieter.LogEntry, error)
	Append(ctx context.Context, entries ...dieter.LogEntry) error
}

// JSONRecordLog keeps every entry in one JSON array stored in a Blob.
// Appends are serialized within the process only.
type JSONRecordLog struct {
	mu   sync.Mutex
	blob Blob
}

func NewJSONRecordLog(blob Blob) *JSONRecordLog {
	return &JSONRecordLog{blob: blob}
}

// Load returns all stored entries. A missing or empty document is an empty log.
func (l *JSONRecordLog) Load(ctx context.Context) ([]dieter.LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

func (l *JSONRecordLog) load(ctx context.Context) ([]dieter.LogEntry, error) {
	b, err := l.blob.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}

	var entries []dieter.LogEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	return entries, nil
}

// Append adds entries to the end of the log.
func (l *JSONRecordLog) Append(ctx context.Context, entries ...dieter.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.load(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(append(existing, entries...), "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := l.blob.Save(ctx, data); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

// TestBlob is a simple in-memory implementation for testing
type TestBlob struct {
	mu   sync.Mutex
	data []byte
	err  error
}

func NewTestBlob(data []byte) *TestBlob {
	return &TestBlob{data: data}
}

func NewTestBlobWithError() *TestBlob {
	return &TestBlob{err: errors.New("storage unavailable")}
}

func (t *TestBlob) Load(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	if t.data == nil {
		return nil, ErrNotFound
	}
	return bytes.Clone(t.data), nil
}

func (t *TestBlob) Save(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.data = bytes.Clone(data)
	return nil
}

// Bytes returns the last saved document.
func (t *TestBlob) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return bytes.Clone(t.data)
}

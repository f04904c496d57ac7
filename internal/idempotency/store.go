package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Record is a replayable write response. HandleID links it to the
// transaction handle the first request produced, when there was one.
type Record struct {
	Kind       string    `json:"kind"`
	HandleID   string    `json:"handleId,omitempty"`
	StatusCode int       `json:"statusCode"`
	Body       []byte    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (r Record) expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Store persists write responses keyed by Key.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Save(ctx context.Context, key string, record Record) error
	Ping(ctx context.Context) error
}

// Key scopes a client-supplied idempotency key to the write kind and the
// account that signs it, so the same header value cannot replay across them.
func Key(kind, account, clientKey string) string {
	return strings.Join([]string{kind, strings.ToLower(account), clientKey}, ":")
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	Now func() time.Time

	mu   sync.RWMutex
	data map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Record)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.data[key]
	if !ok || rec.expired(clock(m.Now).now()) {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = record
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// FileStore persists records as a JSON document on local disk.
type FileStore struct {
	Now func() time.Time

	path string
	mu   sync.Mutex
	data map[string]Record
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is empty")
	}
	fs := &FileStore{
		path: path,
		data: make(map[string]Record),
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FileStore) load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	blob, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(blob) == 0 {
		return nil
	}
	return json.Unmarshal(blob, &f.data)
}

// persist writes through a temp file so a crash never leaves a torn document.
func (f *FileStore) persist() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Get(_ context.Context, key string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	if record.expired(clock(f.Now).now()) {
		delete(f.data, key)
		return nil, f.persist()
	}
	return &record, nil
}

func (f *FileStore) Save(_ context.Context, key string, record Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = record
	return f.persist()
}

func (f *FileStore) Ping(context.Context) error {
	_, err := os.Stat(filepath.Dir(f.path))
	return err
}

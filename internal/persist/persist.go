// Package persist implements the load/save contract of a sheet over a
// key-value byte store. Values are JSON arrays of strings, one per cell.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNotFound reports an absent key.
var ErrNotFound = errors.New("persist: key not found")

// ErrMalformed reports a stored value that is not a capacity-length array of strings.
var ErrMalformed = errors.New("persist: malformed content")

// ByteStore is a key-value store of opaque values.
type ByteStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Adapter binds one key of a ByteStore to a sheet. Failures are logged and
// counted, never returned: the sheet keeps running in memory.
type Adapter struct {
	store    ByteStore
	key      string
	capacity int
	failures atomic.Int64
}

func NewAdapter(store ByteStore, key string, capacity int) *Adapter {
	return &Adapter{store: store, key: key, capacity: capacity}
}

// Load returns the stored content when present and well formed.
func (a *Adapter) Load(ctx context.Context) ([]string, bool) {
	data, err := a.store.Get(ctx, a.key)
	if errors.Is(err, ErrNotFound) {
		return nil, false
	}
	if err != nil {
		a.failures.Add(1)
		log.Printf("persist: load %s: %v", a.key, err)
		return nil, false
	}
	content, err := Decode(data, a.capacity)
	if err != nil {
		log.Printf("persist: load %s: %v", a.key, err)
		return nil, false
	}
	return content, true
}

// Save writes content. It is not retried.
func (a *Adapter) Save(ctx context.Context, content []string) {
	data, err := Encode(content)
	if err != nil {
		a.failures.Add(1)
		log.Printf("persist: encode %s: %v", a.key, err)
		return
	}
	if err := a.store.Put(ctx, a.key, data); err != nil {
		a.failures.Add(1)
		log.Printf("persist: save %s: %v", a.key, err)
	}
}

// Failures counts load and save errors since the adapter was created.
func (a *Adapter) Failures() int64 {
	return a.failures.Load()
}

func Encode(content []string) ([]byte, error) {
	if content == nil {
		content = []string{}
	}
	return json.Marshal(content)
}

// Decode parses a JSON array of exactly capacity strings. A capacity below
// zero accepts any length.
func Decode(data []byte, capacity int) ([]string, error) {
	var raw []*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if capacity >= 0 && len(raw) != capacity {
		return nil, fmt.Errorf("%w: %d cells, want %d", ErrMalformed, len(raw), capacity)
	}
	content := make([]string, len(raw))
	for i, cell := range raw {
		if cell == nil {
			return nil, fmt.Errorf("%w: cell %d is null", ErrMalformed, i)
		}
		content[i] = *cell
	}
	return content, nil
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.mu.Lock()
	m.values[key] = stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }

// Revision is one recorded version of a key in a Versioned store.
type Revision struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Versioned is implemented by stores that keep every written value.
type Versioned interface {
	Revisions(ctx context.Context, key string, limit int) ([]Revision, error)
	GetRevision(ctx context.Context, key, hash string) ([]byte, error)
}

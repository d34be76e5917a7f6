// Package mocks provides in-memory doubles for the remote object
// store, used across the sync and migration tests.
package mocks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/remote"
)

// MemStore is an in-memory remote.ObjectStore. All methods are safe
// for concurrent use.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailKeys maps object keys to errors, letting tests inject
	// failures for specific operations.
	FailKeys map[string]error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		objects:  make(map[string][]byte),
		FailKeys: make(map[string]error),
	}
}

// Seed stores an object directly, bypassing error injection.
func (m *MemStore) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

// Keys returns all stored keys, sorted.
func (m *MemStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Object returns a stored object's bytes.
func (m *MemStore) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

func (m *MemStore) failure(key string) error {
	if err, ok := m.FailKeys[key]; ok {
		return err
	}
	return nil
}

func (m *MemStore) List(ctx context.Context, prefix string) ([]remote.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var infos []remote.ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, remote.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Key < infos[j].Key
	})
	return infos, nil
}

func (m *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemStore) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure(key); err != nil {
		return nil, err
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemStore) PutBytes(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure(key); err != nil {
		return err
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[key] = stored
	return nil
}

func (m *MemStore) Download(ctx context.Context, key, localPath string, onBytes remote.ByteProgress) error {
	data, err := m.GetBytes(ctx, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return err
	}
	if onBytes != nil {
		onBytes(int64(len(data)))
	}
	return nil
}

func (m *MemStore) Upload(ctx context.Context, localPath, key string, onBytes remote.ByteProgress) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	if err := m.PutBytes(ctx, key, data); err != nil {
		return err
	}
	if onBytes != nil {
		onBytes(int64(len(data)))
	}
	return nil
}

func (m *MemStore) Copy(ctx context.Context, srcKey, dstKey string, size int64, onBytes remote.ByteProgress) error {
	data, err := m.GetBytes(ctx, srcKey)
	if err != nil {
		return err
	}
	if err := m.PutBytes(ctx, dstKey, data); err != nil {
		return err
	}
	if onBytes != nil {
		onBytes(int64(len(data)))
	}
	return nil
}

func (m *MemStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure(key); err != nil {
		return err
	}
	delete(m.objects, key)
	return nil
}

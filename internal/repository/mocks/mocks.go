package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rpggio/inkwell/internal/repository"
	"github.com/stretchr/testify/mock"
)

// KVStore is a mock for repository.KVStore.
type KVStore struct {
	mock.Mock
}

func (m *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if value, ok := args.Get(0).([]byte); ok {
		return value, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *KVStore) Put(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *KVStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *KVStore) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if keys, ok := args.Get(0).([]string); ok {
		return keys, args.Error(1)
	}
	return nil, args.Error(1)
}

// Publisher records published change events.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(topic, kind, key string) {
	m.Called(topic, kind, key)
}

// MemoryKVStore is an in-memory repository.KVStore for tests that need
// state to survive across calls.
type MemoryKVStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{data: make(map[string][]byte)}
}

func (m *MemoryKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryKVStore) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return repository.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKVStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return repository.ErrNotFound
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryKVStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

package memory

import (
	"context"
	"sync"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/interfaces"
)

// MemoryStore in-memory реализация PreferenceStore.
// Используется в тестах и как backend по умолчанию без БД.
type MemoryStore struct {
	values   map[string]string
	watchers map[string][]chan string
	closed   bool
	mu       sync.RWMutex
}

func New() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string]string),
		watchers: make(map[string][]chan string),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.values[key]
	return value, exists, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	watchers := append([]chan string(nil), m.watchers[key]...)
	m.mu.Unlock()

	// Уведомление не должно блокировать писателя: медленный
	// наблюдатель теряет промежуточные значения.
	for _, ch := range watchers {
		select {
		case ch <- value:
		default:
		}
	}

	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Watch(key string) <-chan string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan string, 16)
	if m.closed {
		close(ch)
		return ch
	}
	m.watchers[key] = append(m.watchers[key], ch)
	return ch
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for _, chans := range m.watchers {
		for _, ch := range chans {
			close(ch)
		}
	}
	m.watchers = make(map[string][]chan string)
	return nil
}

// Verify interface implementation
var _ interfaces.PreferenceStore = (*MemoryStore)(nil)

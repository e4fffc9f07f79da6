package state

import (
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store. Writes are staged and only merged on commit.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) View(fn func(Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memoryTx{base: s.data})
}

func (s *MemoryStore) Update(fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		base:     s.data,
		writable: true,
		staged:   make(map[string][]byte),
		deleted:  make(map[string]struct{}),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for key := range tx.deleted {
		delete(s.data, key)
	}
	for key, value := range tx.staged {
		s.data[key] = value
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

type memoryTx struct {
	base     map[string][]byte
	writable bool
	staged   map[string][]byte
	deleted  map[string]struct{}
}

func (t *memoryTx) Get(key string) ([]byte, error) {
	if value, ok := t.staged[key]; ok {
		return clone(value), nil
	}
	if _, ok := t.deleted[key]; ok {
		return nil, nil
	}
	if value, ok := t.base[key]; ok {
		return clone(value), nil
	}
	return nil, nil
}

func (t *memoryTx) Put(key string, value []byte) error {
	if !t.writable {
		return ErrReadOnly
	}
	delete(t.deleted, key)
	t.staged[key] = clone(value)
	return nil
}

func (t *memoryTx) Delete(key string) error {
	if !t.writable {
		return ErrReadOnly
	}
	delete(t.staged, key)
	t.deleted[key] = struct{}{}
	return nil
}

func (t *memoryTx) Scan(prefix string, fn func(key string, value []byte) error) error {
	keys := make([]string, 0)
	seen := make(map[string]struct{})
	for key := range t.base {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
			seen[key] = struct{}{}
		}
	}
	for key := range t.staged {
		if _, ok := seen[key]; !ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		value, err := t.Get(key)
		if err != nil {
			return err
		}
		if value == nil {
			continue
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

package persistence

import "sync"

// InMemoryStore keeps values in a map. It is the test double for Store and
// also backs ephemeral sessions that should not touch the disk.
type InMemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		values: make(map[string][]byte),
	}
}

func (s *InMemoryStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	ret := make([]byte, len(v))
	copy(ret, v)
	return ret, nil
}

func (s *InMemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.values[key] = v
	return nil
}

func (s *InMemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

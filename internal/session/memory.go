package session

import (
	"context"
	"sync"
)

// memoryBackend keeps encoded documents in a map. Callers never share
// memory with the stored state.
type memoryBackend struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemoryStore returns a process-local store. Contents are lost on exit.
func NewMemoryStore(opts ...Option) Store {
	return newDocStore(&memoryBackend{docs: map[string][]byte{}}, opts...)
}

func (m *memoryBackend) insert(_ context.Context, name string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[name]; ok {
		return duplicate(name)
	}
	m.docs[name] = doc
	return nil
}

func (m *memoryBackend) load(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[name]
	if !ok {
		return nil, notFound(name)
	}
	return doc, nil
}

func (m *memoryBackend) list(_ context.Context) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *memoryBackend) remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[name]; !ok {
		return notFound(name)
	}
	delete(m.docs, name)
	return nil
}

func (m *memoryBackend) update(_ context.Context, name string, fn func([]byte) ([]byte, error)) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[name]
	if !ok {
		return nil, notFound(name)
	}
	next, err := fn(doc)
	if err != nil {
		return nil, err
	}
	m.docs[name] = next
	return next, nil
}

func (m *memoryBackend) close() error { return nil }

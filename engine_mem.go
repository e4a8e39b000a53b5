package typedstore

import (
	"slices"
	"sync"
)

// MemEngine is a transient in-memory Engine, intended for tests and for
// stores whose contents need not survive the process.
type MemEngine struct {
	mu     sync.RWMutex
	items  map[string][]byte
	closed bool
}

var _ Engine = (*MemEngine)(nil)

func NewMemEngine() *MemEngine {
	return &MemEngine{items: make(map[string][]byte)}
}

func (e *MemEngine) Get(key []byte) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, engineErrf("get", key, ErrClosed)
	}
	v, ok := e.items[string(key)]
	if !ok {
		return nil, nil
	}
	if len(v) == 0 {
		return emptyValue, nil
	}
	return slices.Clone(v), nil
}

func (e *MemEngine) Contains(key []byte) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false, engineErrf("contains", key, ErrClosed)
	}
	_, ok := e.items[string(key)]
	return ok, nil
}

func (e *MemEngine) Put(key, value []byte) error {
	value = slices.Clone(value)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return engineErrf("put", key, ErrClosed)
	}
	e.items[string(key)] = value
	return nil
}

func (e *MemEngine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

func (e *MemEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.items = nil
	return nil
}

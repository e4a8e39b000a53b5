package typedstore

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Waiter is a single-use slot that receives the value of one future write.
//
// The channel has room for exactly one value, so Notify never blocks on a
// slow reader, and a value delivered concurrently with Cancel is kept in
// the channel for the reader to pick up.
type Waiter struct {
	key       string
	ch        chan []byte
	startTime time.Time
}

// C returns the channel the value will be delivered on.
func (w *Waiter) C() <-chan []byte {
	return w.ch
}

// Key returns a fresh copy of the key the waiter was registered for; the
// registry keeps its own string and never hands it out.
func (w *Waiter) Key() []byte {
	return []byte(w.key)
}

// Registry tracks pending waiters per key.
//
// An entry exists only while it has at least one waiter, so memory is
// bounded by the number of outstanding waits rather than by the number of
// keys ever awaited. The lock only guards map and slice operations; nobody
// holds it across engine calls or channel receives.
type Registry struct {
	mu      sync.Mutex
	waiters map[string][]*Waiter
	count   int
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		waiters: make(map[string][]*Waiter),
		now:     time.Now,
	}
}

// Register adds a new waiter for key. The caller must eventually either
// receive from w.C() or call Cancel.
func (r *Registry) Register(key []byte) *Waiter {
	w := &Waiter{
		key:       string(key),
		ch:        make(chan []byte, 1),
		startTime: r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.waiters[w.key] = append(r.waiters[w.key], w)
	r.count++
	return w
}

// Notify delivers value to every waiter registered for key and drops the
// entry, returning the number of waiters fulfilled. Extraction and removal
// happen under one lock acquisition, so a concurrent Register either lands
// in the list being fulfilled or starts a fresh entry.
func (r *Registry) Notify(key, value []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, found := r.waiters[string(key)]
	if !found {
		return 0
	}
	delete(r.waiters, string(key))
	r.count -= len(list)

	for _, w := range list {
		w.ch <- value // never blocks: cap 1, and w is no longer reachable by other notifies
	}
	return len(list)
}

// Cancel removes w from its key's entry. It returns false when w was no
// longer registered, which means a Notify got there first and the value is
// waiting in w.C().
func (r *Registry) Cancel(w *Waiter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.waiters[w.key]
	i := slices.Index(list, w)
	if i < 0 {
		return false
	}

	if len(list) == 1 {
		delete(r.waiters, w.key)
	} else {
		list = slices.Delete(list, i, i+1)
		r.waiters[w.key] = list
	}
	r.count--
	return true
}

// Pending returns the number of waiters registered for key.
func (r *Registry) Pending(key []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters[string(key)])
}

// Len returns the total number of registered waiters.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Keys returns the number of keys with at least one waiter.
func (r *Registry) Keys() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

type pendingKey struct {
	key    string
	count  int
	oldest time.Time
}

// Describe lists pending keys, oldest wait first.
func (r *Registry) Describe() string {
	r.mu.Lock()
	keys := make([]pendingKey, 0, len(r.waiters))
	for k, list := range r.waiters {
		keys = append(keys, pendingKey{k, len(list), list[0].startTime})
	}
	r.mu.Unlock()

	if len(keys) == 0 {
		return "NO PENDING WAITERS"
	}

	slices.SortFunc(keys, func(a, b pendingKey) int {
		if c := a.oldest.Compare(b.oldest); c != 0 {
			return c
		}
		return strings.Compare(a.key, b.key)
	})

	now := r.now()

	var buf strings.Builder
	fmt.Fprintf(&buf, "%d KEYS WITH PENDING WAITERS:\n", len(keys))
	for _, pk := range keys {
		ms := now.Sub(pk.oldest).Milliseconds()
		fmt.Fprintf(&buf, "%s: %d waiters, oldest for %d ms\n", hexstr([]byte(pk.key)), pk.count, ms)
	}
	return buf.String()
}

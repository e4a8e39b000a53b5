package typedstore

// Engine is the durable byte-oriented storage a Store is layered on.
//
// Implementations must be safe for concurrent use, and a Put that has
// returned must be visible to every subsequent Get and Contains, from any
// goroutine. Engines never block waiting for future writes; that is what
// Store.NotifyRead is for.
type Engine interface {
	// Get returns a copy of the value stored under key, or nil if the key
	// is absent. A present but empty value is returned as a non-nil empty slice.
	Get(key []byte) ([]byte, error)

	// Put durably stores value under key, replacing any previous value.
	Put(key, value []byte) error

	// Contains reports whether key is present.
	Contains(key []byte) (bool, error)

	// Close releases the engine. Operations after Close return ErrClosed.
	Close() error
}

var emptyValue = []byte{}

package typedstore

import "sync/atomic"

// stats is shared by every clone of a Store.
type stats struct {
	ReadCount      atomic.Uint64
	WriteCount     atomic.Uint64
	WaitCount      atomic.Uint64
	RecheckHits    atomic.Uint64
	DeliveredCount atomic.Uint64
	NotifiedCount  atomic.Uint64
	CancelledCount atomic.Uint64
}

type Stats struct {
	Reads  uint64
	Writes uint64

	// Waits counts NotifyRead calls that found no value and registered a waiter.
	Waits uint64
	// RecheckHits counts waits resolved by the second engine read.
	RecheckHits uint64
	// Delivered counts waits resolved by a write's notification.
	Delivered uint64
	// Notified counts waiters fulfilled by writes through this store,
	// including those that ended up cancelled before consuming the value.
	Notified  uint64
	Cancelled uint64

	PendingWaiters int
}

func (s *stats) snapshot(reg *Registry) Stats {
	return Stats{
		Reads:          s.ReadCount.Load(),
		Writes:         s.WriteCount.Load(),
		Waits:          s.WaitCount.Load(),
		RecheckHits:    s.RecheckHits.Load(),
		Delivered:      s.DeliveredCount.Load(),
		Notified:       s.NotifiedCount.Load(),
		Cancelled:      s.CancelledCount.Load(),
		PendingWaiters: reg.Len(),
	}
}

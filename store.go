package typedstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Store is a typed view of an Engine that can wait for keys to be written.
//
// A *Store is safe for concurrent use. Clone returns another handle sharing
// the same engine, registry and counters.
type Store[K, V any] struct {
	engine  Engine
	reg     *Registry
	keys    Codec[K]
	values  Codec[V]
	logger  *slog.Logger
	verbose bool
	stats   *stats
}

func New[K, V any](engine Engine, keys Codec[K], values Codec[V], opt Options) *Store[K, V] {
	if engine == nil {
		panic("typedstore: nil engine")
	}
	return &Store[K, V]{
		engine:  engine,
		reg:     NewRegistry(),
		keys:    keys,
		values:  values,
		logger:  opt.logger(),
		verbose: opt.Verbose,
		stats:   new(stats),
	}
}

func (s *Store[K, V]) Clone() *Store[K, V] {
	c := *s
	return &c
}

func (s *Store[K, V]) Engine() Engine {
	return s.engine
}

func (s *Store[K, V]) Registry() *Registry {
	return s.reg
}

func (s *Store[K, V]) Stats() Stats {
	return s.stats.snapshot(s.reg)
}

// Write stores value under key and then wakes everyone waiting for key.
// Waiters are only notified after the engine reports success.
func (s *Store[K, V]) Write(key K, value V) error {
	kb, err := s.encodeKey(key)
	if err != nil {
		return err
	}
	vb, err := s.values.Encode(value)
	if err != nil {
		return fmt.Errorf("typedstore: encoding value: %w", err)
	}

	err = s.engine.Put(kb, vb)
	if err != nil {
		return engineErrf("put", kb, err)
	}
	s.stats.WriteCount.Add(1)

	if n := s.reg.Notify(kb, vb); n > 0 {
		s.stats.NotifiedCount.Add(uint64(n))
		if s.verbose {
			s.logger.Debug("typedstore: notified", hexAttr("key", kb), "waiters", n)
		}
	}
	return nil
}

// Read returns the value stored under key; ok is false if there is none.
func (s *Store[K, V]) Read(key K) (value V, ok bool, err error) {
	kb, err := s.encodeKey(key)
	if err != nil {
		return value, false, err
	}
	return s.readRaw(kb)
}

func (s *Store[K, V]) Contains(key K) (bool, error) {
	kb, err := s.encodeKey(key)
	if err != nil {
		return false, err
	}
	found, err := s.engine.Contains(kb)
	if err != nil {
		return false, engineErrf("contains", kb, err)
	}
	return found, nil
}

// NotifyRead returns the value of key, waiting for it to be written if it
// isn't there yet. It only returns without a value on error, including
// ctx ending (the error then matches both ErrWaitCancelled and ctx.Err()).
//
// The key is read, a waiter is registered, and the key is read again. A
// write that the first read missed either lands before the second read
// and is seen there, or finishes its Put after registration, in which case
// its Notify finds the waiter.
func (s *Store[K, V]) NotifyRead(ctx context.Context, key K) (V, error) {
	var zero V
	kb, err := s.encodeKey(key)
	if err != nil {
		return zero, err
	}

	v, ok, err := s.readRaw(kb)
	if err != nil || ok {
		return v, err
	}

	w := s.reg.Register(kb)
	s.stats.WaitCount.Add(1)

	v, ok, err = s.readRaw(kb)
	if err != nil || ok {
		if !s.reg.Cancel(w) {
			// a write got in between; prefer its value over a failed recheck
			raw := <-w.C()
			if err != nil {
				return s.delivered(kb, raw)
			}
		}
		if ok {
			s.stats.RecheckHits.Add(1)
			if s.verbose {
				s.logger.Debug("typedstore: found on recheck", hexAttr("key", kb))
			}
		}
		return v, err
	}

	if s.verbose {
		s.logger.Debug("typedstore: waiting", hexAttr("key", kb))
	}

	select {
	case raw := <-w.C():
		return s.delivered(kb, raw)
	case <-ctx.Done():
		if !s.reg.Cancel(w) {
			return s.delivered(kb, <-w.C())
		}
		s.stats.CancelledCount.Add(1)
		if s.verbose {
			s.logger.Debug("typedstore: wait cancelled", hexAttr("key", kb), "err", ctx.Err())
		}
		return zero, cancelledErr(ctx)
	}
}

// NotifyReadAll waits for every key concurrently and returns their values
// in the same order. The first error cancels the remaining waits.
func (s *Store[K, V]) NotifyReadAll(ctx context.Context, keys []K) ([]V, error) {
	result := make([]V, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			v, err := s.NotifyRead(ctx, key)
			if err != nil {
				return err
			}
			result[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store[K, V]) delivered(kb, raw []byte) (V, error) {
	s.stats.DeliveredCount.Add(1)
	if s.verbose {
		s.logger.Debug("typedstore: delivered", hexAttr("key", kb))
	}
	return s.decodeValue(kb, raw)
}

func (s *Store[K, V]) readRaw(kb []byte) (value V, ok bool, err error) {
	raw, err := s.engine.Get(kb)
	if err != nil {
		s.logger.Warn("typedstore: engine read failed", hexAttr("key", kb), "err", err)
		return value, false, engineErrf("get", kb, err)
	}
	s.stats.ReadCount.Add(1)
	if raw == nil {
		return value, false, nil
	}
	value, err = s.decodeValue(kb, raw)
	if err != nil {
		return value, false, err
	}
	return value, true, nil
}

func (s *Store[K, V]) encodeKey(key K) ([]byte, error) {
	kb, err := s.keys.Encode(key)
	if err != nil {
		return nil, fmt.Errorf("typedstore: encoding key: %w", err)
	}
	if len(kb) == 0 {
		return nil, fmt.Errorf("typedstore: %w", ErrEmptyKey)
	}
	return kb, nil
}

func (s *Store[K, V]) decodeValue(kb, raw []byte) (V, error) {
	v, err := s.values.Decode(raw)
	if err != nil {
		if !errors.Is(err, ErrCorruptedRecord) {
			err = dataErrf(raw, 0, err, "decoding value")
		}
		s.logger.Error("typedstore: corrupted record", hexAttr("key", kb), "err", err)
		return v, err
	}
	return v, nil
}

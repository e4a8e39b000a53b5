package typedstore

import (
	"log/slog"
	"os"
	"reflect"
	"testing"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func setupBolt(t testing.TB) *BoltEngine {
	t.Helper()

	dbFile := must(os.CreateTemp("", "typedstore_test_*.db"))
	t.Logf("DB: %s", dbFile.Name())
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	e := must(OpenBolt(dbFile.Name(), Options{IsTesting: true}))
	t.Cleanup(func() { e.Close() })
	return e
}

func setupMem(t testing.TB) *MemEngine {
	e := NewMemEngine()
	t.Cleanup(func() { e.Close() })
	return e
}

// eachEngine runs f against every Engine implementation.
func eachEngine(t *testing.T, f func(t *testing.T, e Engine)) {
	t.Run("bolt", func(t *testing.T) {
		f(t, setupBolt(t))
	})
	t.Run("mem", func(t *testing.T) {
		f(t, setupMem(t))
	})
}

func setupBytes(t *testing.T, e Engine) *Store[[]byte, []byte] {
	return New[[]byte, []byte](e, Bytes{}, Bytes{}, Options{Verbose: true})
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}

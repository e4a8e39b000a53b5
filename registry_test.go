package typedstore

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRegistry_NotifyFulfilsAllWaitersInOrder(t *testing.T) {
	r := NewRegistry()
	k := []byte{1, 2}
	w1 := r.Register(k)
	w2 := r.Register(k)
	other := r.Register([]byte{3})

	if n := r.Pending(k); n != 2 {
		t.Fatalf("Pending = %d, wanted 2", n)
	}
	if n := r.Len(); n != 3 {
		t.Fatalf("Len = %d, wanted 3", n)
	}

	if n := r.Notify(k, []byte("v")); n != 2 {
		t.Fatalf("Notify = %d, wanted 2", n)
	}
	for i, w := range []*Waiter{w1, w2} {
		select {
		case v := <-w.C():
			if string(v) != "v" {
				t.Fatalf("waiter %d got %q, wanted v", i, v)
			}
		default:
			t.Fatalf("waiter %d not fulfilled", i)
		}
	}
	select {
	case v := <-other.C():
		t.Fatalf("waiter for another key got %q", v)
	default:
	}

	if n := r.Pending(k); n != 0 {
		t.Fatalf("Pending after Notify = %d, wanted 0", n)
	}
	if n := r.Keys(); n != 1 {
		t.Fatalf("Keys = %d, wanted 1", n)
	}
	if n := r.Notify(k, []byte("again")); n != 0 {
		t.Fatalf("second Notify = %d, wanted 0", n)
	}
}

func TestRegistry_NotifyWithoutWaiters(t *testing.T) {
	r := NewRegistry()
	if n := r.Notify([]byte("nobody"), []byte("v")); n != 0 {
		t.Fatalf("Notify = %d, wanted 0", n)
	}
	if r.Keys() != 0 {
		t.Fatalf("Notify created an entry")
	}
}

func TestRegistry_Cancel(t *testing.T) {
	r := NewRegistry()
	k := []byte("k")
	w1 := r.Register(k)
	w2 := r.Register(k)
	w3 := r.Register(k)

	if !r.Cancel(w2) {
		t.Fatalf("Cancel(w2) = false, wanted true")
	}
	if r.Cancel(w2) {
		t.Fatalf("second Cancel(w2) = true, wanted false")
	}
	if n := r.Pending(k); n != 2 {
		t.Fatalf("Pending = %d, wanted 2", n)
	}

	r.Notify(k, []byte("v"))
	if len(w1.C()) != 1 || len(w3.C()) != 1 {
		t.Fatalf("remaining waiters not fulfilled")
	}
	if len(w2.C()) != 0 {
		t.Fatalf("cancelled waiter was fulfilled")
	}
}

func TestRegistry_CancelLastWaiterRemovesEntry(t *testing.T) {
	r := NewRegistry()
	w := r.Register([]byte("k"))
	if !r.Cancel(w) {
		t.Fatalf("Cancel = false, wanted true")
	}
	if r.Keys() != 0 || r.Len() != 0 {
		t.Fatalf("Keys = %d, Len = %d after cancelling the only waiter, wanted 0, 0", r.Keys(), r.Len())
	}
	if n := r.Notify([]byte("k"), []byte("v")); n != 0 {
		t.Fatalf("Notify after cancel = %d, wanted 0", n)
	}
}

func TestRegistry_CancelAfterNotifyKeepsValue(t *testing.T) {
	r := NewRegistry()
	w := r.Register([]byte("k"))
	r.Notify([]byte("k"), []byte("v"))
	if r.Cancel(w) {
		t.Fatalf("Cancel after Notify = true, wanted false")
	}
	if v := <-w.C(); string(v) != "v" {
		t.Fatalf("got %q, wanted v", v)
	}
}

func TestRegistry_WaiterKeyIsCopied(t *testing.T) {
	r := NewRegistry()
	k := []byte("abc")
	w := r.Register(k)
	k[0] = 'x'
	if string(w.Key()) != "abc" {
		t.Fatalf("Key = %q, wanted abc", w.Key())
	}
	if r.Pending([]byte("abc")) != 1 {
		t.Fatalf("registration affected by caller mutating key")
	}
	kc := w.Key()
	kc[0] = 'y'
	if string(w.Key()) != "abc" || r.Pending([]byte("abc")) != 1 {
		t.Fatalf("mutating Key() result changed the waiter's key")
	}
}

func TestRegistry_Describe(t *testing.T) {
	r := NewRegistry()
	if got := r.Describe(); got != "NO PENDING WAITERS" {
		t.Fatalf("Describe() = %q, wanted NO PENDING WAITERS", got)
	}

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	r.Register([]byte{0xBB})
	now = now.Add(time.Second)
	r.Register([]byte{0xAA})
	r.Register([]byte{0xAA})
	now = now.Add(time.Second)

	got := r.Describe()
	want := "2 KEYS WITH PENDING WAITERS:\nbb: 1 waiters, oldest for 2000 ms\naa: 2 waiters, oldest for 1000 ms\n"
	if got != want {
		t.Fatalf("Describe() = %q, wanted %q", got, want)
	}
}

func TestRegistry_ConcurrentRegisterNotifyCancel(t *testing.T) {
	r := NewRegistry()
	k := []byte("hot")

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := r.Register(k)
			if i%2 == 0 {
				if !r.Cancel(w) {
					<-w.C()
				}
				return
			}
			for {
				select {
				case <-w.C():
					return
				case <-time.After(time.Millisecond):
					r.Notify(k, []byte("v"))
				}
			}
		}()
	}
	wg.Wait()

	if r.Len() != 0 || r.Keys() != 0 {
		t.Fatalf("leaked waiters: %s", r.Describe())
	}
	if s := r.Describe(); !strings.HasPrefix(s, "NO PENDING") {
		t.Fatalf("Describe() = %q", s)
	}
}

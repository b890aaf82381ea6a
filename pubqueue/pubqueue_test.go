package pubqueue

import (
	"sync"
	"testing"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := New(4)
	for i := 0; i < 3; i++ {
		if err := q.Put(Entry{Kind: KindStatus, Payload: []byte{byte(i)}}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	for i := 0; i < 3; i++ {
		e, ok := q.Get()
		if !ok {
			t.Fatalf("get %d: queue empty", i)
		}
		if e.Payload[0] != byte(i) {
			t.Fatalf("got payload %v, want %d", e.Payload, i)
		}
	}
	if _, ok := q.Get(); ok {
		t.Fatalf("expected empty queue after draining")
	}
}

func TestQueuePutFailsWhenFullNoOverwrite(t *testing.T) {
	q := New(2)
	if err := q.Put(Entry{Payload: []byte("a")}); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := q.Put(Entry{Payload: []byte("b")}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if err := q.Put(Entry{Payload: []byte("c")}); err != ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	e, _ := q.Get()
	if string(e.Payload) != "a" {
		t.Fatalf("oldest entry was overwritten, got %q", e.Payload)
	}
}

func TestQueuePurge(t *testing.T) {
	q := New(4)
	_ = q.Put(Entry{Payload: []byte("a")})
	_ = q.Put(Entry{Payload: []byte("b")})
	q.Purge()
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after purge, len=%d", q.Len())
	}
	if err := q.Put(Entry{Payload: []byte("c")}); err != nil {
		t.Fatalf("put after purge: %v", err)
	}
}

func TestQueueWrapAround(t *testing.T) {
	q := New(3)
	_ = q.Put(Entry{Payload: []byte("a")})
	_ = q.Put(Entry{Payload: []byte("b")})
	q.Get()
	_ = q.Put(Entry{Payload: []byte("c")})
	_ = q.Put(Entry{Payload: []byte("d")})
	var got []string
	for {
		e, ok := q.Get()
		if !ok {
			break
		}
		got = append(got, string(e.Payload))
	}
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestQueueConcurrentPutGet(t *testing.T) {
	q := New(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.Put(Entry{Payload: []byte{byte(n)}})
		}(i)
	}
	wg.Wait()
	count := 0
	for {
		if _, ok := q.Get(); !ok {
			break
		}
		count++
	}
	if count != 8 {
		t.Fatalf("expected 8 entries, got %d", count)
	}
}

package ring

import (
	"testing"
	"time"
)

func TestPushPopOrder(t *testing.T) {
	b := New[int](8)

	for i := 0; i < 5; i++ {
		if !b.Push(i) {
			t.Fatalf("Push(%d) failed on non-full buffer", i)
		}
	}
	for i := 0; i < 5; i++ {
		v, ok := b.Pop()
		if !ok {
			t.Fatalf("Pop() %d failed on non-empty buffer", i)
		}
		if v != i {
			t.Errorf("Pop() = %d, want %d", v, i)
		}
	}
	if _, ok := b.Pop(); ok {
		t.Error("Pop() on empty buffer should fail")
	}
}

func TestPushFullDrops(t *testing.T) {
	b := New[int](4)

	for i := 0; i < b.Cap(); i++ {
		if !b.Push(i) {
			t.Fatalf("Push(%d) failed before capacity", i)
		}
	}
	if b.Push(99) {
		t.Error("Push() on full buffer should fail")
	}

	// after one pop there is room again
	if _, ok := b.Pop(); !ok {
		t.Fatal("Pop() failed")
	}
	if !b.Push(4) {
		t.Error("Push() after Pop() should succeed")
	}
}

func TestCapacityRoundsUp(t *testing.T) {
	tests := []struct {
		requested int
		expected  int
	}{
		{1, 1},
		{3, 4},
		{4, 4},
		{1000, 1024},
		{0, 1},
	}
	for _, tt := range tests {
		if got := New[byte](tt.requested).Cap(); got != tt.expected {
			t.Errorf("New(%d).Cap() = %d, want %d", tt.requested, got, tt.expected)
		}
	}
}

func TestAbandon(t *testing.T) {
	b := New[int](4)
	b.Push(1)

	if b.Abandoned() {
		t.Error("new buffer should not be abandoned")
	}
	b.Abandon()
	if !b.Abandoned() {
		t.Error("Abandoned() should report true after Abandon()")
	}

	// queued elements survive abandonment
	if v, ok := b.Pop(); !ok || v != 1 {
		t.Errorf("Pop() after Abandon() = %d, %v", v, ok)
	}
}

// One producer and one consumer hammer the buffer; the consumer must
// observe every accepted value exactly once, in order.
func TestConcurrentFIFO(t *testing.T) {
	const total = 200000
	b := New[uint64](64)

	accepted := make(chan uint64, 1)
	go func() {
		var n uint64
		for i := uint64(0); i < total; i++ {
			if b.Push(i) {
				n++
			}
		}
		b.Abandon()
		accepted <- n
	}()

	var got []uint64
	for {
		v, ok := b.Pop()
		if ok {
			got = append(got, v)
			continue
		}
		if b.Abandoned() {
			// drain whatever arrived before abandonment
			for {
				v, ok := b.Pop()
				if !ok {
					break
				}
				got = append(got, v)
			}
			break
		}
		time.Sleep(time.Microsecond)
	}

	want := <-accepted
	if uint64(len(got)) != want {
		t.Fatalf("consumer observed %d values, producer accepted %d", len(got), want)
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("values out of order at %d: %d after %d", i, got[i], got[i-1])
		}
	}
}

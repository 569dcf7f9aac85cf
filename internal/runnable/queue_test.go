package runnable

import (
	"testing"
	"time"
)

func TestQueueDropOnFull(t *testing.T) {
	q := NewQueue[int](3)
	accepted := 0
	for i := 0; i < 10; i++ {
		if q.TryPut(i) {
			accepted++
		}
	}
	if accepted != 3 {
		t.Errorf("accepted %d puts, want 3", accepted)
	}
	// FIFO: the survivors are the first three, in order.
	for want := 0; want < 3; want++ {
		got, ok := q.TryGet()
		if !ok || got != want {
			t.Fatalf("TryGet() = %v,%v, want %v,true", got, ok, want)
		}
	}
	if _, ok := q.TryGet(); ok {
		t.Error("TryGet on drained queue reported a value")
	}
}

func TestQueuePutTimeout(t *testing.T) {
	q := NewQueue[int](1)
	if !q.PutTimeout(1, 10*time.Millisecond) {
		t.Fatal("put into empty queue dropped")
	}
	start := time.Now()
	if q.PutTimeout(2, 20*time.Millisecond) {
		t.Error("put into full queue accepted")
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("PutTimeout returned after %v, want it to wait the timeout", elapsed)
	}
}

func TestQueueCapacityImmutable(t *testing.T) {
	q := NewQueue[string](5)
	if q.Cap() != 5 {
		t.Errorf("Cap() = %d, want 5", q.Cap())
	}
	q.TryPut("a")
	if q.Cap() != 5 || q.Len() != 1 {
		t.Errorf("Cap/Len = %d/%d, want 5/1", q.Cap(), q.Len())
	}
}

func TestQueueCloseIdempotent(t *testing.T) {
	q := NewQueue[int](2)
	q.TryPut(1)
	q.Close()
	q.Close() // must not panic

	if q.TryPut(2) {
		t.Error("put into closed queue accepted")
	}
	// Buffered items survive Close.
	if v, ok := q.TryGet(); !ok || v != 1 {
		t.Errorf("TryGet after Close = %v,%v, want 1,true", v, ok)
	}
	if _, ok := q.TryGet(); ok {
		t.Error("TryGet on drained closed queue reported a value")
	}
}

func TestQueueConcurrentPutClose(t *testing.T) {
	q := NewQueue[int](4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			q.TryPut(i)
		}
	}()
	time.Sleep(time.Millisecond)
	q.Close() // must not race or panic against in-flight puts
	<-done
}

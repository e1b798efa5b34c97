package containers

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestRingQueueWrapAround(t *testing.T) {
	rq := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := rq.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("enqueue on full queue: got %v, want ErrQueueFull", err)
	}

	v, err := rq.Dequeue()
	if err != nil || v != 1 {
		t.Fatalf("dequeue = %d, %v; want 1", v, err)
	}
	if err := rq.Enqueue(4); err != nil {
		t.Fatalf("enqueue after dequeue: %v", err)
	}

	var got []int
	rq.Each(func(v int) { got = append(got, v) })
	want := []int{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Each = %v, want %v", got, want)
		}
	}
}

func TestRingQueueEmpty(t *testing.T) {
	rq := NewRingQueue[string](1)
	if _, err := rq.Peek(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("peek on empty queue: got %v", err)
	}
	if _, err := rq.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("dequeue on empty queue: got %v", err)
	}
}

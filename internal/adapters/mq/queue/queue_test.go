package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type item struct {
	ID string
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue[item](WithCapacity(2), WithName("test"))
	ctx := context.Background()

	// Test empty queue
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	// Test enqueue
	if !q.Enqueue(ctx, item{ID: "item1"}) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	// Test dequeue
	got := <-q.Dequeue(ctx)
	if got.ID != "item1" {
		t.Errorf("expected item1, got %v", got.ID)
	}
	if c := q.Cap(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue[item](WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, item{ID: "item1"}) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, item{ID: "item2"}) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(ctx, item{ID: "item3"}) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_EnqueueWaitBlocksUntilRoom(t *testing.T) {
	q := NewInMemoryQueue[item](WithCapacity(1))
	ctx := context.Background()

	if err := q.EnqueueWait(ctx, item{ID: "first"}); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- q.EnqueueWait(ctx, item{ID: "second"})
	}()

	select {
	case err := <-done:
		t.Fatalf("expected enqueue to block, returned %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	out := q.Dequeue(ctx)
	if got := <-out; got.ID != "first" {
		t.Errorf("expected first, got %s", got.ID)
	}
	if err := <-done; err != nil {
		t.Errorf("expected blocked enqueue to succeed, got %v", err)
	}
	if got := <-out; got.ID != "second" {
		t.Errorf("expected second, got %s", got.ID)
	}
}

func TestInMemoryQueue_EnqueueWaitHonorsContext(t *testing.T) {
	q := NewInMemoryQueue[item](WithCapacity(1))
	if !q.Enqueue(context.Background(), item{ID: "fill"}) {
		t.Fatal("expected enqueue to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.EnqueueWait(ctx, item{ID: "late"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestInMemoryQueue_CloseReleasesWaiters(t *testing.T) {
	q := NewInMemoryQueue[item](WithCapacity(1))
	ctx := context.Background()
	if !q.Enqueue(ctx, item{ID: "fill"}) {
		t.Fatal("expected enqueue to succeed")
	}

	done := make(chan error, 1)
	go func() {
		done <- q.EnqueueWait(ctx, item{ID: "blocked"})
	}()
	time.Sleep(10 * time.Millisecond)

	if err := q.Close(); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected close to release the blocked writer")
	}
}

func TestInMemoryQueue_FIFOUnderConcurrency(t *testing.T) {
	q := NewInMemoryQueue[item](WithCapacity(8))
	ctx := context.Background()
	numProducers := 10
	numItems := 100

	// One consumer observes each producer's items in order.
	out := q.Dequeue(ctx)
	lastSeen := make(map[int]int)
	consumed := make(chan struct{})
	var orderErr error
	go func() {
		defer close(consumed)
		for n := 0; n < numProducers*numItems; n++ {
			it := <-out
			var p, j int
			if _, err := fmt.Sscanf(it.ID, "p%d_%d", &p, &j); err != nil {
				orderErr = err
				return
			}
			if prev, ok := lastSeen[p]; ok && j <= prev {
				orderErr = fmt.Errorf("producer %d out of order: %d after %d", p, j, prev)
				return
			}
			lastSeen[p] = j
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < numProducers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numItems; j++ {
				if err := q.EnqueueWait(ctx, item{ID: fmt.Sprintf("p%d_%d", id, j)}); err != nil {
					t.Errorf("enqueue failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	select {
	case <-consumed:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not finish")
	}
	if orderErr != nil {
		t.Error(orderErr)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue[item](WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, item{ID: "item1"}) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, item{ID: "item2"}) {
		t.Error("expected enqueue to succeed")
	}

	// Check initial state
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	// Close the queue
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	// Try to enqueue after closing (should fail)
	if q.Enqueue(ctx, item{ID: "item3"}) {
		t.Error("expected enqueue to fail after closing")
	}
	if err := q.EnqueueWait(ctx, item{ID: "item3"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Queued items drain, then the channel closes
	var drained int
	timeout := time.After(100 * time.Millisecond)
	out := q.Dequeue(ctx)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				if drained != 2 {
					t.Errorf("expected 2 drained items, got %d", drained)
				}
				// Close again should not error
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			drained++
		case <-timeout:
			t.Error("expected dequeue channel to be closed within timeout")
			return
		}
	}
}

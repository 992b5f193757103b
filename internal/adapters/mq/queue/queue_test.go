package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jornada/fichaje/internal/domain/model"
)

func testPunch(id, user string) model.PunchEvent {
	return model.PunchEvent{
		ID:        id,
		UserID:    user,
		Kind:      model.KindClockIn,
		Timestamp: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Test empty queue
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	// Test enqueue
	if !q.Enqueue(ctx, testPunch("f-1", "u-1")) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	// Test dequeue
	notifChan := q.Dequeue(ctx)
	n := <-notifChan
	if n.ID != "f-1" {
		t.Errorf("expected f-1, got %v", n.ID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Fill the queue
	if !q.Enqueue(ctx, testPunch("f-1", "u-1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, testPunch("f-2", "u-2")) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(ctx, testPunch("f-3", "u-3")) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numNotifications := 100

	// Start producer goroutines
	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numNotifications; j++ {
				n := testPunch(fmt.Sprintf("f-%d-%d", id, j), fmt.Sprintf("u-%d", id))
				for !q.Enqueue(ctx, n) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	// Start consumer goroutines
	consumed := make(chan string, numGoroutines*numNotifications)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			notifChan := q.Dequeue(ctx)
			for n := range notifChan {
				consumed <- n.ID
			}
		}()
	}

	// Wait for producers to finish
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	// Wait a bit for consumers to process
	time.Sleep(100 * time.Millisecond)

	// Check final queue length
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, testPunch("f-1", "u-1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, testPunch("f-2", "u-2")) {
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

	// Check closed state
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	// Try to enqueue after closing (should fail)
	if q.Enqueue(ctx, testPunch("f-3", "u-3")) {
		t.Error("expected enqueue to fail after closing")
	}

	// Dequeue channel should be closed
	notifChan := q.Dequeue(ctx)

	// Wait for channel to be closed
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case _, ok := <-notifChan:
			if !ok {
				// Channel is closed, which is expected
				goto channelClosed
			}
		case <-timeout:
			t.Error("expected dequeue channel to be closed within timeout")
			return
		}
	}
channelClosed:

	// Close again should not error
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}

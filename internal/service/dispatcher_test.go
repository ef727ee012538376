package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
)

func inbound(from, id string) *domain.InboundMessage {
	return &domain.InboundMessage{ID: id, From: from, Body: id}
}

func TestDispatcher_PreservesOrderPerSender(t *testing.T) {
	var mu sync.Mutex
	var got []string

	d := NewDispatcher(func(ctx context.Context, msg *domain.InboundMessage) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		got = append(got, msg.ID)
		mu.Unlock()
	}, 0)

	for i := 0; i < 10; i++ {
		if err := d.Enqueue(inbound("919876543210", fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	d.Stop(context.Background())

	if len(got) != 10 {
		t.Fatalf("Expected 10 handled messages, got %d", len(got))
	}
	for i, id := range got {
		if id != fmt.Sprintf("m%d", i) {
			t.Fatalf("Expected arrival order, got %v", got)
		}
	}
}

func TestDispatcher_SendersRunInParallel(t *testing.T) {
	release := make(chan struct{})
	var started int32

	d := NewDispatcher(func(ctx context.Context, msg *domain.InboundMessage) {
		atomic.AddInt32(&started, 1)
		<-release
	}, 0)

	d.Enqueue(inbound("111", "a"))
	d.Enqueue(inbound("222", "b"))

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&started) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&started) != 2 {
		t.Error("Expected both senders to be handled concurrently")
	}

	close(release)
	d.Stop(context.Background())
}

func TestDispatcher_QueueFull(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(func(ctx context.Context, msg *domain.InboundMessage) {
		<-release
	}, 2)

	// first message is taken by the worker, or sits at the head of the lane
	d.Enqueue(inbound("111", "m0"))
	d.Enqueue(inbound("111", "m1"))

	var full bool
	for i := 2; i < 5; i++ {
		if err := d.Enqueue(inbound("111", fmt.Sprintf("m%d", i))); errors.Is(err, ErrQueueFull) {
			full = true
		}
	}
	if !full {
		t.Error("Expected ErrQueueFull once the lane is at capacity")
	}

	// other senders are unaffected
	if err := d.Enqueue(inbound("222", "x")); err != nil {
		t.Errorf("Expected other lane to accept, got %v", err)
	}

	close(release)
	d.Stop(context.Background())
}

func TestDispatcher_RejectsAfterStop(t *testing.T) {
	d := NewDispatcher(func(ctx context.Context, msg *domain.InboundMessage) {}, 0)
	d.Stop(context.Background())

	if err := d.Enqueue(inbound("111", "late")); !errors.Is(err, ErrDispatcherStopped) {
		t.Errorf("Expected ErrDispatcherStopped, got %v", err)
	}
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	var handled int32
	d := NewDispatcher(func(ctx context.Context, msg *domain.InboundMessage) {
		if msg.ID == "boom" {
			panic("handler exploded")
		}
		atomic.AddInt32(&handled, 1)
	}, 0)

	d.Enqueue(inbound("111", "boom"))
	d.Enqueue(inbound("111", "after"))
	d.Stop(context.Background())

	if atomic.LoadInt32(&handled) != 1 {
		t.Error("Expected the lane to keep going after a panic")
	}
	if d.Pending() != 0 {
		t.Errorf("Expected no pending messages, got %d", d.Pending())
	}
}

func TestDispatcher_StopTimeoutCancelsHandlers(t *testing.T) {
	d := NewDispatcher(func(ctx context.Context, msg *domain.InboundMessage) {
		<-ctx.Done()
	}, 0)
	d.Enqueue(inbound("111", "slow"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		d.Stop(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Stop to return after its context expired")
	}
}

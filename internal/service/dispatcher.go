package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
)

var (
	// ErrDispatcherStopped is returned by Enqueue after Stop
	ErrDispatcherStopped = errors.New("dispatcher stopped")

	// ErrQueueFull is returned when a sender's lane is at capacity
	ErrQueueFull = errors.New("queue full")
)

const defaultLaneDepth = 20

// Handler processes one inbound message
type Handler func(ctx context.Context, msg *domain.InboundMessage)

// Dispatcher queues inbound messages in one lane per sender.
// A sender's messages are handled one at a time in arrival order; different senders run in parallel.
type Dispatcher struct {
	handle Handler
	depth  int

	mu      sync.Mutex
	lanes   map[string][]*domain.InboundMessage
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a new dispatcher; depth bounds the pending messages per sender
func NewDispatcher(handle Handler, depth int) *Dispatcher {
	if depth <= 0 {
		depth = defaultLaneDepth
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		handle: handle,
		depth:  depth,
		lanes:  make(map[string][]*domain.InboundMessage),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue adds a message to its sender's lane
func (d *Dispatcher) Enqueue(msg *domain.InboundMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrDispatcherStopped
	}

	key := msg.From
	queue, active := d.lanes[key]
	if active {
		if len(queue) >= d.depth {
			fmt.Printf("[Dispatcher] Lane %s full, dropping message %s\n", key, msg.ID)
			return ErrQueueFull
		}
		d.lanes[key] = append(queue, msg)
		return nil
	}

	d.lanes[key] = []*domain.InboundMessage{msg}
	d.wg.Add(1)
	go d.drain(key)
	return nil
}

// Pending returns the number of queued messages not yet started
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, q := range d.lanes {
		n += len(q)
	}
	return n
}

// Stop refuses new messages and waits for queued ones to finish.
// When ctx ends first, in-flight handlers see their context cancelled.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		fmt.Printf("[Dispatcher] Drain interrupted with %d pending\n", d.Pending())
		d.cancel()
		<-done
	}
	d.cancel()
	fmt.Println("[Dispatcher] Stopped")
}

// drain handles a lane until it is empty, then removes it
func (d *Dispatcher) drain(key string) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		queue := d.lanes[key]
		if len(queue) == 0 {
			delete(d.lanes, key)
			d.mu.Unlock()
			return
		}
		msg := queue[0]
		queue[0] = nil
		d.lanes[key] = queue[1:]
		d.mu.Unlock()

		d.process(msg)
	}
}

func (d *Dispatcher) process(msg *domain.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Dispatcher] Panic handling message %s from %s: %v\n", msg.ID, msg.From, r)
		}
	}()
	d.handle(d.ctx, msg)
}

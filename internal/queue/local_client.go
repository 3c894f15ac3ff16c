package queue

import (
	"context"
	"sync"
	"time"
)

// Handler consumes a queue message.
type Handler func(ctx context.Context, msg Message)

// LocalClient dispatches messages to an in-process handler. It backs dev
// setups without SQS: delayed sends are scheduled on a timer and handled on
// their own goroutine.
type LocalClient struct {
	mu      sync.RWMutex
	handler Handler
}

// NewLocalClient constructs an in-process queue client.
func NewLocalClient() *LocalClient {
	return &LocalClient{}
}

// SetHandler installs the consumer. Messages sent before a handler is set are
// dropped.
func (l *LocalClient) SetHandler(h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

// Send schedules the message for in-process handling after delay.
func (l *LocalClient) Send(ctx context.Context, msg Message, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dispatch := func() {
		l.mu.RLock()
		h := l.handler
		l.mu.RUnlock()
		if h != nil {
			h(context.Background(), msg)
		}
	}
	if delay <= 0 {
		go dispatch()
		return nil
	}
	time.AfterFunc(delay, dispatch)
	return nil
}

var _ Client = (*LocalClient)(nil)

package queue

import (
	"context"
	"time"
)

// Client sends messages to a queue backend. A zero delay delivers as soon as
// the backend allows; a positive delay holds the message back for retry
// backoff scheduling.
type Client interface {
	Send(ctx context.Context, msg Message, delay time.Duration) error
}

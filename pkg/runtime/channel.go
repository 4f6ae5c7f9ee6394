package runtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// Channel is a bounded FIFO for cooperative handoff between concurrently
// executing paths (Fork branches, Spawn bodies). Capacity 0 means
// unbuffered/synchronous rendezvous: a send only completes once a receiver
// is ready to take it. Grounded on the source's asyncio.Queue-backed
// channel.py, translated to a Go channel of values plus a closed flag.
type Channel struct {
	ID     uuid.UUID
	buf    chan types.Value
	closed chan struct{}
	cap    int
}

// NewChannel creates a Channel with the given buffer capacity.
func NewChannel(capacity int) *Channel {
	return &Channel{
		ID:     uuid.New(),
		buf:    make(chan types.Value, capacity),
		closed: make(chan struct{}),
		cap:    capacity,
	}
}

// IsClosed reports whether Close has been called.
func (c *Channel) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Len returns the number of values currently buffered.
func (c *Channel) Len() int { return len(c.buf) }

// Cap returns the channel's buffer capacity.
func (c *Channel) Cap() int { return c.cap }

// Send suspends until capacity is available, then enqueues v. Errors with a
// RuntimeError if the channel is closed.
func (c *Channel) Send(ctx context.Context, v types.Value) error {
	select {
	case <-c.closed:
		return types.NewRuntimeError("send on closed channel")
	default:
	}
	select {
	case c.buf <- v:
		return nil
	case <-c.closed:
		return types.NewRuntimeError("send on closed channel")
	case <-ctx.Done():
		return types.NewCancelledError("send cancelled")
	}
}

// TrySend is non-blocking: it enqueues v only if the buffer has room and the
// channel is open, returning whether it succeeded.
func (c *Channel) TrySend(v types.Value) (bool, error) {
	if c.IsClosed() {
		return false, types.NewRuntimeError("send on closed channel")
	}
	select {
	case c.buf <- v:
		return true, nil
	default:
		return false, nil
	}
}

// Receive suspends until a value is available. If timeout > 0, it raises a
// Timeout error after that duration. If the channel is closed and drained,
// it raises a RuntimeError.
func (c *Channel) Receive(ctx context.Context, timeout time.Duration) (types.Value, error) {
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case v, ok := <-c.buf:
		if !ok {
			return types.Null, types.NewRuntimeError("receive on closed, empty channel")
		}
		return v, nil
	case <-c.closed:
		select {
		case v, ok := <-c.buf:
			if ok {
				return v, nil
			}
		default:
		}
		return types.Null, types.NewRuntimeError("receive on closed, empty channel")
	case <-timeoutCh:
		return types.Null, types.NewTimeoutErr("channel receive timed out")
	case <-ctx.Done():
		return types.Null, types.NewCancelledError("receive cancelled")
	}
}

// TryReceive is non-blocking: returns (value, true) if one was available
// without blocking, else (null, false).
func (c *Channel) TryReceive() (types.Value, bool) {
	select {
	case v, ok := <-c.buf:
		if !ok {
			return types.Null, false
		}
		return v, true
	default:
		return types.Null, false
	}
}

// Close marks the channel closed: no further sends succeed; pending
// receives drain the buffer, then raise.
func (c *Channel) Close() {
	select {
	case <-c.closed:
		return // already closed
	default:
		close(c.closed)
	}
}

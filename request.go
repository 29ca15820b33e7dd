package mpv

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// NoTimeout makes a reply wait unbounded.
const NoTimeout time.Duration = -1

// PendingRequest is an asynchronous call whose reply has not been
// consumed yet.
type PendingRequest struct {
	ID       uint64
	Command  string
	Timeout  time.Duration
	Deadline time.Time
}

// WaitOptions controls WaitReply.
type WaitOptions struct {
	// Timeout bounds the wait. Zero checks once without blocking;
	// NoTimeout (or any negative value) waits until the reply arrives.
	Timeout time.Duration

	// CheckError makes the wait return the reply's native error, if any.
	CheckError bool
}

// replyQueue correlates asynchronous replies with their requests.
//
// libmpv delivers every reply through the single ordered event queue, so
// replies land in one shared list and every arrival pulses a broadcast
// signal. Waiters re-scan the list on each pulse.
type replyQueue struct {
	mu       sync.Mutex
	pending  map[uint64]*pendingEntry
	received []Event
	signal   chan struct{}
	closed   bool
}

type pendingEntry struct {
	PendingRequest
	waiting bool
}

func newReplyQueue() *replyQueue {
	return &replyQueue{
		pending: make(map[uint64]*pendingEntry),
		signal:  make(chan struct{}),
	}
}

// register records a request before it is sent, so a fast reply is not
// dropped.
func (q *replyQueue) register(req PendingRequest) error {
	if req.ID == 0 {
		return invalidArgument("register", "request id 0 is reserved for fire-and-forget")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return disposed("register")
	}
	q.sweepLocked(time.Now())
	if _, dup := q.pending[req.ID]; dup {
		return invalidArgument("register", fmt.Sprintf("request id %d is already pending", req.ID))
	}
	q.pending[req.ID] = &pendingEntry{PendingRequest: req}
	return nil
}

// forget drops a request and any reply it received.
func (q *replyQueue) forget(id uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.forgetLocked(id)
}

func (q *replyQueue) forgetLocked(id uint64) {
	delete(q.pending, id)
	for i, ev := range q.received {
		if ev.ReplyUserData == id {
			q.received = append(q.received[:i], q.received[i+1:]...)
			return
		}
	}
}

// sweepLocked drops expired requests nobody is waiting on.
func (q *replyQueue) sweepLocked(now time.Time) {
	for id, p := range q.pending {
		if !p.waiting && !p.Deadline.IsZero() && now.After(p.Deadline) {
			q.forgetLocked(id)
		}
	}
}

// deliver stores a reply for a pending request and wakes all waiters.
// It reports false for replies nobody asked for.
func (q *replyQueue) deliver(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[ev.ReplyUserData]; !ok || q.closed {
		return false
	}
	q.received = append(q.received, ev)
	q.pulseLocked()
	return true
}

func (q *replyQueue) pulseLocked() {
	close(q.signal)
	q.signal = make(chan struct{})
}

// close fails current and future waits with KindObjectDisposed.
func (q *replyQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.pulseLocked()
}

func (q *replyQueue) takeLocked(id uint64) (Event, bool) {
	for i, ev := range q.received {
		if ev.ReplyUserData == id {
			q.received = append(q.received[:i], q.received[i+1:]...)
			delete(q.pending, id)
			return ev, true
		}
	}
	return Event{}, false
}

func (q *replyQueue) pendingRequests() []PendingRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingRequest, 0, len(q.pending))
	for _, p := range q.pending {
		out = append(out, p.PendingRequest)
	}
	return out
}

// wait blocks until the reply for id arrives, the timeout elapses, ctx is
// done or the queue is closed.
func (q *replyQueue) wait(ctx context.Context, id uint64, opts WaitOptions) (Event, error) {
	q.mu.Lock()
	p, ok := q.pending[id]
	if !ok {
		q.mu.Unlock()
		return Event{}, invalidArgument("wait", fmt.Sprintf("no pending request with id %d", id))
	}
	p.waiting = true
	q.mu.Unlock()

	var expired <-chan time.Time
	if opts.Timeout > 0 {
		t := time.NewTimer(opts.Timeout)
		defer t.Stop()
		expired = t.C
	}

	for {
		q.mu.Lock()
		if ev, ok := q.takeLocked(id); ok {
			q.mu.Unlock()
			return replyResult(ev, opts)
		}
		if q.closed {
			q.forgetLocked(id)
			q.mu.Unlock()
			return Event{}, disposed("wait")
		}
		if opts.Timeout == 0 {
			q.forgetLocked(id)
			q.mu.Unlock()
			return Event{}, timeoutError(id, opts.Timeout)
		}
		signal := q.signal
		q.mu.Unlock()

		select {
		case <-signal:
		case <-expired:
			return q.giveUp(id, opts, timeoutError(id, opts.Timeout))
		case <-ctx.Done():
			return q.giveUp(id, opts, fmt.Errorf("mpv: wait for request %d: %w", id, ctx.Err()))
		}
	}
}

// giveUp takes a reply that raced with the timeout, or forgets the
// request and returns err.
func (q *replyQueue) giveUp(id uint64, opts WaitOptions, err error) (Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if ev, ok := q.takeLocked(id); ok {
		return replyResult(ev, opts)
	}
	q.forgetLocked(id)
	return Event{}, err
}

func replyResult(ev Event, opts WaitOptions) (Event, error) {
	if opts.CheckError && ev.Error != nil {
		return ev, ev.Error
	}
	return ev, nil
}

func timeoutError(id uint64, d time.Duration) *Error {
	return &Error{
		Kind:   KindTimeout,
		Op:     "wait",
		Detail: fmt.Sprintf("no reply for request %d within %v", id, d),
	}
}

// Request is an asynchronous call in flight.
type Request struct {
	ID      uint64
	Command string

	q       *replyQueue
	timeout time.Duration
}

// Wait blocks until the reply arrives and returns it. A negative native
// status is returned as a KindCommand error. Calling Wait from an event
// handler never succeeds, since the reply is dispatched by the blocked
// loop goroutine.
func (r *Request) Wait(ctx context.Context) (Event, error) {
	return r.q.wait(ctx, r.ID, WaitOptions{Timeout: r.timeout, CheckError: true})
}

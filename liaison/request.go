package liaison

import (
	"context"

	"github.com/pkg/errors"

	"github.com/fxdaemon/fxBench-sub005/id"
)

var (
	// ErrNotConnected is returned by Post while no sender goroutine is
	// active. The request is never queued.
	ErrNotConnected = errors.New("liaison: not connected")
	// ErrRequestRejected marks a recoverable, per-request failure.
	ErrRequestRejected = errors.New("liaison: request rejected")
)

// fatalError wraps an unrecoverable transport failure. It terminates the
// sender goroutine.
type fatalError struct{ err error }

func (e *fatalError) Error() string { return "liaison: fatal: " + e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as unrecoverable for the sender loop.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err carries the fatal marker.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// Sender receives the completion callbacks of its requests. Completion fires
// once per batch, on the last sibling; failure fires once, referencing the
// request that failed.
type Sender interface {
	RequestCompleted(req *Request)
	RequestFailed(req *Request, err error)
}

// ExecFunc performs the request against the transport. It runs on the sender
// goroutine, outside the queue lock.
type ExecFunc func(ctx context.Context) error

// Request is one outbound command. Requests chained with Then form a batch:
// they execute in order and fail atomically.
type Request struct {
	id     string
	sender Sender
	exec   ExecFunc

	next *Request
	head *Request
}

// NewRequest builds a request owned by sender.
func NewRequest(sender Sender, exec ExecFunc) *Request {
	r := &Request{id: id.New(), sender: sender, exec: exec}
	r.head = r
	return r
}

// ID returns the request's correlation id.
func (r *Request) ID() string { return r.id }

// Then chains next as a sibling executed after r. It returns r so chains can
// be built fluently. All siblings share r's batch.
func (r *Request) Then(next *Request) *Request {
	tail := r
	for tail.next != nil {
		tail = tail.next
	}
	tail.next = next
	for n := next; n != nil; n = n.next {
		n.head = r.head
	}
	return r
}

// HasSibling reports whether more requests of the same batch follow r.
func (r *Request) HasSibling() bool { return r.next != nil }

// sameBatch reports whether two queued requests belong to one chain.
func sameBatch(a, b *Request) bool { return a.head == b.head }

package liaison

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Transport is implemented by the protocol layer. Login/Logout/Refresh are
// lifecycle hooks; the core drives them but does not define the wire format.
type Transport interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// StatusListener observes visible status transitions.
type StatusListener func(old, new Status)

// CriticalListener observes fatal channel errors.
type CriticalListener func(err error)

// Liaison owns the outbound request queue and the one goroutine that drains
// it. Requests execute strictly in FIFO order; a request that never returns
// blocks the whole queue (documented limitation, no per-request timeout).
type Liaison struct {
	log       *zap.Logger
	transport Transport

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []*Request
	status   Status
	running  bool
	stopping bool
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc

	lmu          sync.RWMutex
	statusSubs   []statusSub
	criticalSubs []criticalSub
	nextToken    int
}

type statusSub struct {
	token int
	fn    StatusListener
}

type criticalSub struct {
	token int
	fn    CriticalListener
}

func New(log *zap.Logger) *Liaison {
	l := &Liaison{log: log, status: Disconnected}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// SetTransport installs the protocol layer. Must be called before Login.
func (l *Liaison) SetTransport(t Transport) {
	l.mu.Lock()
	l.transport = t
	l.mu.Unlock()
}

// OnStatus registers a status listener; it returns a token for RemoveListener.
func (l *Liaison) OnStatus(fn StatusListener) int {
	l.lmu.Lock()
	defer l.lmu.Unlock()
	l.nextToken++
	l.statusSubs = append(l.statusSubs, statusSub{token: l.nextToken, fn: fn})
	return l.nextToken
}

// OnCritical registers a fatal-error listener.
func (l *Liaison) OnCritical(fn CriticalListener) int {
	l.lmu.Lock()
	defer l.lmu.Unlock()
	l.nextToken++
	l.criticalSubs = append(l.criticalSubs, criticalSub{token: l.nextToken, fn: fn})
	return l.nextToken
}

// RemoveListener drops the listener registered under token.
func (l *Liaison) RemoveListener(token int) {
	l.lmu.Lock()
	defer l.lmu.Unlock()
	for i, s := range l.statusSubs {
		if s.token == token {
			l.statusSubs = append(l.statusSubs[:i:i], l.statusSubs[i+1:]...)
			return
		}
	}
	for i, s := range l.criticalSubs {
		if s.token == token {
			l.criticalSubs = append(l.criticalSubs[:i:i], l.criticalSubs[i+1:]...)
			return
		}
	}
}

// Status returns the externally visible status. A non-empty queue always
// reads as Sending, whatever status was last set.
func (l *Liaison) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visibleLocked()
}

func (l *Liaison) visibleLocked() Status {
	if len(l.queue) > 0 && l.status.Active() {
		return Sending
	}
	return l.status
}

// setStatus records the requested status and notifies listeners if the
// visible status changed. Queue occupancy takes priority over the requested
// value.
func (l *Liaison) setStatus(s Status) {
	l.mu.Lock()
	old := l.visibleLocked()
	l.status = s
	new := l.visibleLocked()
	l.mu.Unlock()

	if old != new {
		l.notifyStatus(old, new)
	}
}

// BeginReceiving marks the channel busy with an inbound frame. Only a Ready
// channel enters Receiving; a non-empty queue still reads as Sending.
func (l *Liaison) BeginReceiving() { l.transition(Ready, Receiving) }

// EndReceiving returns a Receiving channel to Ready once the frame has been
// dispatched.
func (l *Liaison) EndReceiving() { l.transition(Receiving, Ready) }

// transition moves from one recorded status to another, doing nothing when
// the channel is not in the expected state.
func (l *Liaison) transition(from, to Status) {
	l.mu.Lock()
	if l.status != from {
		l.mu.Unlock()
		return
	}
	old := l.visibleLocked()
	l.status = to
	new := l.visibleLocked()
	l.mu.Unlock()

	if old != new {
		l.notifyStatus(old, new)
	}
}

func (l *Liaison) notifyStatus(old, new Status) {
	l.lmu.RLock()
	subs := make([]StatusListener, len(l.statusSubs))
	for i, s := range l.statusSubs {
		subs[i] = s.fn
	}
	l.lmu.RUnlock()

	l.log.Debug("liaison status",
		zap.Stringer("from", old),
		zap.Stringer("to", new))
	for _, fn := range subs {
		fn(old, new)
	}
}

func (l *Liaison) notifyCritical(err error) {
	l.lmu.RLock()
	subs := make([]CriticalListener, len(l.criticalSubs))
	for i, s := range l.criticalSubs {
		subs[i] = s.fn
	}
	l.lmu.RUnlock()

	l.log.Error("liaison fatal error", zap.Error(err))
	for _, fn := range subs {
		fn(err)
	}
}

// Login connects through the transport and starts the sender goroutine.
func (l *Liaison) Login(ctx context.Context) error {
	l.setStatus(Connecting)
	if err := l.transport.Login(ctx); err != nil {
		l.setStatus(Disconnected)
		return err
	}
	l.startSender()
	l.setStatus(Ready)
	return nil
}

// Reconnect re-runs the login sequence through the Reconnecting state,
// keeping the desk's recalculation wiring down until the channel is live
// again.
func (l *Liaison) Reconnect(ctx context.Context) error {
	l.setStatus(Reconnecting)
	l.stopSender()
	return l.Login(ctx)
}

// Logout stops the sender goroutine, joins it, and disconnects the
// transport.
func (l *Liaison) Logout(ctx context.Context) error {
	l.setStatus(Disconnecting)
	l.stopSender()
	err := l.transport.Logout(ctx)
	l.setStatus(Disconnected)
	return err
}

// Refresh asks the protocol layer to replay the full data set.
func (l *Liaison) Refresh(ctx context.Context) error {
	return l.transport.Refresh(ctx)
}

// Post enqueues a request and its siblings for the sender goroutine. It
// fails immediately with ErrNotConnected while no sender is active; the
// request is not queued.
func (l *Liaison) Post(req *Request) error {
	l.mu.Lock()
	if !l.running || l.stopping {
		l.mu.Unlock()
		return ErrNotConnected
	}
	old := l.visibleLocked()
	for r := req; r != nil; r = r.next {
		l.queue = append(l.queue, r)
	}
	new := l.visibleLocked()
	l.cond.Signal()
	l.mu.Unlock()

	if old != new {
		// Visible status flips to Sending the moment the queue fills; a
		// queue that already read as Sending stays silent.
		l.notifyStatus(old, new)
	}
	return nil
}

// QueueLen reports the number of queued requests.
func (l *Liaison) QueueLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Liaison) startSender() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.stopping = false
	l.done = make(chan struct{})
	l.ctx, l.cancel = context.WithCancel(context.Background())
	done, ctx := l.done, l.ctx
	l.mu.Unlock()

	go l.senderLoop(ctx, done)
}

// stopSender signals the sender goroutine and joins it before returning.
func (l *Liaison) stopSender() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.stopping = true
	done := l.done
	l.cancel()
	l.cond.Broadcast()
	l.mu.Unlock()

	<-done

	l.mu.Lock()
	l.running = false
	l.stopping = false
	l.queue = nil
	l.mu.Unlock()
}

// senderLoop drains the queue strictly in FIFO order. Execution happens
// outside the lock so producers never block on a slow request.
func (l *Liaison) senderLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.stopping {
			l.cond.Wait()
		}
		if l.stopping {
			l.mu.Unlock()
			return
		}
		req := l.queue[0]
		l.mu.Unlock()

		err := req.exec(ctx)

		switch {
		case err == nil:
			l.mu.Lock()
			old := l.visibleLocked()
			l.queue = l.queue[1:]
			new := l.visibleLocked()
			l.mu.Unlock()

			if !req.HasSibling() && req.sender != nil {
				req.sender.RequestCompleted(req)
			}
			if old != new {
				// Queue drained: publish the post-execution status.
				l.notifyStatus(old, new)
			}

		case IsFatal(err):
			l.mu.Lock()
			old := l.visibleLocked()
			l.queue = nil
			l.running = false
			l.status = Disconnected
			new := l.visibleLocked()
			l.mu.Unlock()

			l.notifyCritical(err)
			if old != new {
				l.notifyStatus(old, new)
			}
			return

		default:
			// Recoverable failure: the batch fails atomically. Drop the
			// failed request and every remaining sibling, report once.
			l.mu.Lock()
			old := l.visibleLocked()
			kept := l.queue[:0:len(l.queue)]
			for _, r := range l.queue {
				if !sameBatch(r, req) {
					kept = append(kept, r)
				}
			}
			l.queue = kept
			new := l.visibleLocked()
			l.mu.Unlock()

			l.log.Warn("request failed", zap.String("request", req.ID()), zap.Error(err))
			if req.sender != nil {
				req.sender.RequestFailed(req, err)
			}
			if old != new {
				l.notifyStatus(old, new)
			}
		}
	}
}

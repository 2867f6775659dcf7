package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/willibrandon/glance/internal/dbgateway"
)

// ErrQueueFull is returned by Handle.HandleInput when the actor's
// request queue is already full. The front end should surface it as
// a transient "busy" state, not a hard failure.
var ErrQueueFull = errors.New("orchestrator: request queue is full")

// requestKind distinguishes what an Actor should do with a request.
// HandleInput and ConfirmQuery go through the bounded work queue and
// run one at a time. CancelQuery, Close, and SwitchConnection are all
// control messages serviced immediately even while a request is in
// flight; SwitchConnection additionally cancels whatever is running
// and discards anything still queued before it touches Core, since a
// connection switch must never let stale work run against the new
// connection.
type requestKind int

const (
	reqHandleInput requestKind = iota
	reqConfirmQuery
	reqCancelQuery
	reqSwitchConnection
	reqClose
)

type reply struct {
	result InputResult
	err    error
}

type request struct {
	kind requestKind

	// id is this request's own identity, assigned by Handle.send
	// before it's queued. targetID is only set on a reqCancelQuery
	// control message: the id of the request it wants cancelled.
	id       RequestId
	targetID RequestId

	input          string
	sql            string
	connectionName string
	connectionCfg  dbgateway.ConnectionConfig

	reply chan reply
}

// Actor serializes every call into Core: at most one HandleInput or
// ConfirmQuery runs at a time, but CancelQuery, Close, and
// SwitchConnection are always serviced promptly on a separate control
// channel so a slow LLM or database call never blocks them.
type Actor struct {
	core *Core

	mu       sync.Mutex
	queue    []request
	maxDepth int
	activeID RequestId

	wakeCh  chan struct{}
	control chan request
	stopped chan struct{}
}

// NewActor builds an Actor around core with a bounded request queue
// of the given depth. A depth below 1 is treated as 1: one request
// can wait in the queue while another is in flight.
func NewActor(core *Core, queueDepth int) *Actor {
	if queueDepth < 1 {
		queueDepth = 1
	}
	return &Actor{
		core:     core,
		maxDepth: queueDepth,
		wakeCh:   make(chan struct{}, 1),
		control:  make(chan request, 8),
		stopped:  make(chan struct{}),
	}
}

// wake nudges Run to pop the next queued request. It never blocks:
// a pending signal already covers any request enqueued before Run
// gets around to reading it.
func (a *Actor) wake() {
	select {
	case a.wakeCh <- struct{}{}:
	default:
	}
}

// enqueue appends req to the bounded queue, assigning it the
// position it'll be popped in. Returns false if the queue is full.
func (a *Actor) enqueue(req request) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) >= a.maxDepth {
		return false
	}
	a.queue = append(a.queue, req)
	return true
}

func (a *Actor) popNext() (request, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) == 0 {
		return request{}, false
	}
	req := a.queue[0]
	a.queue = a.queue[1:]
	return req, true
}

func (a *Actor) queueLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

func (a *Actor) setActive(id RequestId) {
	a.mu.Lock()
	a.activeID = id
	a.mu.Unlock()
}

func (a *Actor) isActive(id RequestId) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return id != "" && id == a.activeID
}

// cancelQueued removes the queued request with the given id, if any,
// and replies Cancelled to the call still waiting on it. Returns
// true if a matching request was found. Mirrors the original
// actor's cancel_by_id for the not-yet-active case.
func (a *Actor) cancelQueued(id RequestId) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, req := range a.queue {
		if req.id == id {
			a.queue = append(a.queue[:i], a.queue[i+1:]...)
			req.reply <- reply{result: cancelledResult()}
			return true
		}
	}
	return false
}

// drainQueued discards every request currently sitting in the
// bounded queue, replying to each with an error so its caller doesn't
// block forever. Used by a connection switch and by shutdown, which
// must never let work queued against the old connection (or a dead
// actor) run at all.
func (a *Actor) drainQueued() {
	a.mu.Lock()
	queued := a.queue
	a.queue = nil
	a.mu.Unlock()

	for _, req := range queued {
		req.reply <- reply{err: errors.New("orchestrator: request discarded by connection switch")}
	}
}

// resolveCancel implements the cancellation contract: cancelling the
// active request interrupts it cooperatively through Core, cancelling
// a request still waiting in the queue removes it and posts Cancelled
// immediately without ever running it, and an id that's neither
// active nor queued is silently ignored.
func (a *Actor) resolveCancel(id RequestId) InputResult {
	if a.isActive(id) {
		return a.core.CancelQuery()
	}
	if a.cancelQueued(id) {
		return cancelledResult()
	}
	return noneResult()
}

// Run drives the actor's main loop until ctx is cancelled or a Close
// request is serviced. It's meant to run on its own goroutine for
// the lifetime of the session.
func (a *Actor) Run(ctx context.Context) {
	defer close(a.stopped)

	for {
		select {
		case <-ctx.Done():
			a.core.Close()
			a.drainOnShutdown()
			return

		case creq := <-a.control:
			if a.serviceControl(ctx, creq) {
				a.drainOnShutdown()
				return
			}

		case <-a.wakeCh:
			req, ok := a.popNext()
			if !ok {
				continue
			}
			if a.runRequest(ctx, req) {
				a.drainOnShutdown()
				return
			}
			if a.queueLen() > 0 {
				a.wake()
			}
		}
	}
}

// runRequest executes one popped request on a worker goroutine while
// continuing to service control messages that arrive while it runs.
// It returns true if a Close arrived mid-flight and the actor should
// stop after this request finishes.
func (a *Actor) runRequest(ctx context.Context, req request) bool {
	a.setActive(req.id)
	defer a.setActive("")

	done := make(chan reply, 1)
	go func() {
		result, err := a.dispatch(ctx, req)
		done <- reply{result: result, err: err}
	}()

	for {
		select {
		case r := <-done:
			req.reply <- r
			return false

		case creq := <-a.control:
			switch creq.kind {
			case reqClose:
				// Let the in-flight request finish before shutting
				// down.
				r := <-done
				req.reply <- r
				creq.reply <- reply{err: a.core.Close()}
				return true

			case reqSwitchConnection:
				// Cancel whatever's running, let it unwind, reply to
				// its caller, then discard anything still queued
				// before the switch touches Core.
				a.core.CancelQuery()
				r := <-done
				req.reply <- r
				a.drainQueued()
				result, err := a.core.SwitchConnection(ctx, creq.connectionName, creq.connectionCfg)
				creq.reply <- reply{result: result, err: err}
				return false

			case reqCancelQuery:
				creq.reply <- reply{result: a.resolveCancel(creq.targetID)}

			default:
				creq.reply <- reply{err: errors.New("orchestrator: unexpected control message")}
			}

		case <-ctx.Done():
			r := <-done
			req.reply <- r
			a.core.Close()
			return true
		}
	}
}

// serviceControl handles a control message that arrived with no
// request active. It returns true if the actor should stop.
func (a *Actor) serviceControl(ctx context.Context, creq request) bool {
	switch creq.kind {
	case reqClose:
		creq.reply <- reply{err: a.core.Close()}
		return true
	case reqCancelQuery:
		creq.reply <- reply{result: a.resolveCancel(creq.targetID)}
		return false
	case reqSwitchConnection:
		// No request is active, but anything already queued still
		// has to be discarded rather than left to run against the
		// connection being switched to.
		a.drainQueued()
		result, err := a.core.SwitchConnection(ctx, creq.connectionName, creq.connectionCfg)
		creq.reply <- reply{result: result, err: err}
		return false
	default:
		creq.reply <- reply{err: errors.New("orchestrator: unexpected control message")}
		return false
	}
}

func (a *Actor) dispatch(ctx context.Context, req request) (InputResult, error) {
	switch req.kind {
	case reqHandleInput:
		return a.core.HandleInput(ctx, req.input)
	case reqConfirmQuery:
		return a.core.ConfirmQuery(ctx, req.sql)
	default:
		return InputResult{}, errors.New("orchestrator: unknown request kind")
	}
}

// drainOnShutdown replies to every request still sitting in the
// queue or the control channel so no caller blocks forever once the
// actor has stopped.
func (a *Actor) drainOnShutdown() {
	a.drainQueued()
	for {
		select {
		case req := <-a.control:
			req.reply <- reply{err: errors.New("orchestrator: actor shut down")}
		default:
			return
		}
	}
}

// waitStopped blocks until Run has returned, or timeout elapses.
func (a *Actor) waitStopped(timeout time.Duration) bool {
	select {
	case <-a.stopped:
		return true
	case <-time.After(timeout):
		return false
	}
}

package orchestrator

import (
	"context"
	"time"

	"github.com/willibrandon/glance/internal/dbgateway"
)

// closeTimeout bounds how long Handle.Close waits for the actor's
// current request to finish before giving up.
const closeTimeout = 5 * time.Second

// Handle is the only thing the front end holds onto: every call
// enqueues a request and waits for the actor's reply, so the render
// loop never touches Core, the database gateway, or the LLM service
// directly.
type Handle struct {
	actor  *Actor
	cancel context.CancelFunc
}

// Spawn starts an Actor around core on its own goroutine and returns
// a Handle to it; Handle.Close stops that goroutine.
func Spawn(core *Core, queueDepth int) *Handle {
	actor := NewActor(core, queueDepth)
	ctx, cancel := context.WithCancel(context.Background())
	go actor.Run(ctx)
	return &Handle{actor: actor, cancel: cancel}
}

// OnQueued is called once with a request's id as soon as it's
// accepted into the actor's queue, before HandleInput/ConfirmQuery
// blocks waiting for the reply. It's how a caller learns the id it
// would need to pass to CancelQuery while the request is still
// pending or running. A nil OnQueued is fine for callers that never
// cancel by id.
type OnQueued func(RequestId)

func (h *Handle) send(ctx context.Context, req request, onQueued OnQueued) (InputResult, error) {
	req.id = newRequestID()
	req.reply = make(chan reply, 1)

	if !h.actor.enqueue(req) {
		return InputResult{}, ErrQueueFull
	}
	if onQueued != nil {
		onQueued(req.id)
	}
	h.actor.wake()

	select {
	case r := <-req.reply:
		return r.result, r.err
	case <-ctx.Done():
		return InputResult{}, ctx.Err()
	}
}

func (h *Handle) sendControl(ctx context.Context, req request) (InputResult, error) {
	req.reply = make(chan reply, 1)
	select {
	case h.actor.control <- req:
	case <-ctx.Done():
		return InputResult{}, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.result, r.err
	case <-ctx.Done():
		return InputResult{}, ctx.Err()
	}
}

// HandleInput submits one line of chat-panel input. It returns
// ErrQueueFull immediately if the actor is already backed up.
// onQueued (may be nil) receives the request's id before this call
// blocks for the result, so the caller can later cancel it by id.
func (h *Handle) HandleInput(ctx context.Context, input string, onQueued OnQueued) (InputResult, error) {
	return h.send(ctx, request{kind: reqHandleInput, input: input}, onQueued)
}

// ConfirmQuery runs a statement the user already confirmed.
func (h *Handle) ConfirmQuery(ctx context.Context, sql string, onQueued OnQueued) (InputResult, error) {
	return h.send(ctx, request{kind: reqConfirmQuery, sql: sql}, onQueued)
}

// SwitchConnection atomically moves the session onto a different
// connection. It's a control message: it cancels whatever request is
// currently running, discards anything still queued behind it, and
// only then connects, so nothing queued against the old connection
// can run against the new one.
func (h *Handle) SwitchConnection(ctx context.Context, name string, cfg dbgateway.ConnectionConfig) (InputResult, error) {
	return h.sendControl(ctx, request{kind: reqSwitchConnection, connectionName: name, connectionCfg: cfg})
}

// CancelQuery targets the request with the given id: if it's the one
// currently active, its cancellation handle is invoked cooperatively;
// if it's still waiting in the queue, it's removed and never runs at
// all; if id matches neither, the call is silently ignored, per the
// cancellation contract. It's a control message serviced immediately,
// never queued behind other work.
func (h *Handle) CancelQuery(ctx context.Context, id RequestId) (InputResult, error) {
	return h.sendControl(ctx, request{kind: reqCancelQuery, targetID: id})
}

// Close asks the actor to finish its current request, release the
// active connection, and stop. It blocks up to closeTimeout waiting
// for a clean shutdown.
func (h *Handle) Close() error {
	ctx, cancelWait := context.WithTimeout(context.Background(), closeTimeout)
	defer cancelWait()

	_, err := h.sendControl(ctx, request{kind: reqClose})

	h.cancel()
	h.actor.waitStopped(closeTimeout)
	return err
}

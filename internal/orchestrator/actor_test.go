package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/willibrandon/glance/internal/dbgateway"
	"github.com/willibrandon/glance/internal/llm"
)

func newTestHandle(t *testing.T) *Handle {
	t.Helper()
	core := NewCore(newTestStore(t), llm.NewService(llm.NewMockClient()))
	h := Spawn(core, 4)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHandleRoundTripsHandleInput(t *testing.T) {
	h := newTestHandle(t)
	ctx := context.Background()

	if _, err := h.SwitchConnection(ctx, "test", dbgateway.ConnectionConfig{Backend: dbgateway.BackendMock}); err != nil {
		t.Fatalf("SwitchConnection: %v", err)
	}

	result, err := h.HandleInput(ctx, "/sql SELECT 1;", nil)
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if result.Kind != ResultExecuted {
		t.Fatalf("Kind = %v, want ResultExecuted", result.Kind)
	}
}

func TestHandleConfirmQuery(t *testing.T) {
	h := newTestHandle(t)
	ctx := context.Background()
	if _, err := h.SwitchConnection(ctx, "test", dbgateway.ConnectionConfig{Backend: dbgateway.BackendMock}); err != nil {
		t.Fatalf("SwitchConnection: %v", err)
	}

	result, err := h.ConfirmQuery(ctx, "DROP TABLE users;", nil)
	if err != nil {
		t.Fatalf("ConfirmQuery: %v", err)
	}
	if result.Kind != ResultExecuted {
		t.Fatalf("Kind = %v, want ResultExecuted", result.Kind)
	}
}

// TestCancelQueryDoesNotWaitBehindAnInFlightRequest proves the
// control channel is serviced even while a worker goroutine is busy:
// CancelQuery must return promptly rather than queueing behind
// whatever HandleInput call is in flight.
func TestCancelQueryDoesNotWaitBehindAnInFlightRequest(t *testing.T) {
	h := newTestHandle(t)
	ctx := context.Background()
	if _, err := h.SwitchConnection(ctx, "test", dbgateway.ConnectionConfig{Backend: dbgateway.BackendMock}); err != nil {
		t.Fatalf("SwitchConnection: %v", err)
	}

	var activeID RequestId
	queued := make(chan struct{})
	go h.HandleInput(ctx, "/sql SELECT 1;", func(id RequestId) {
		activeID = id
		close(queued)
	})
	<-queued

	cancelCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if _, err := h.CancelQuery(cancelCtx, activeID); err != nil {
		t.Fatalf("CancelQuery did not return promptly: %v", err)
	}
}

// TestCancelByIDRemovesCorrectRequest mirrors the original request
// queue's cancel_by_id_removes_correct_request: cancelling a specific
// queued request removes only that one, in its own right, posting
// Cancelled to its caller, and leaves the others in their original
// FIFO order. This exercises the queue mechanism directly, the same
// way the original tests RequestQueue in isolation, rather than racing
// it against a live worker actually dispatching the requests.
func TestCancelByIDRemovesCorrectRequest(t *testing.T) {
	core := NewCore(newTestStore(t), llm.NewService(llm.NewMockClient()))
	a := NewActor(core, 4)

	first := request{kind: reqHandleInput, input: "/sql SELECT 1;", id: newRequestID(), reply: make(chan reply, 1)}
	second := request{kind: reqHandleInput, input: "/sql SELECT 2;", id: newRequestID(), reply: make(chan reply, 1)}
	third := request{kind: reqHandleInput, input: "/sql SELECT 3;", id: newRequestID(), reply: make(chan reply, 1)}

	for _, req := range []request{first, second, third} {
		if !a.enqueue(req) {
			t.Fatalf("enqueue of %s rejected, queue unexpectedly full", req.id)
		}
	}

	if !a.cancelQueued(second.id) {
		t.Fatalf("cancelQueued(%s) = false, want true", second.id)
	}

	select {
	case r := <-second.reply:
		if r.result.Kind != ResultCancelled {
			t.Fatalf("second request's reply Kind = %v, want ResultCancelled", r.result.Kind)
		}
	default:
		t.Fatal("cancelQueued did not reply to the cancelled request")
	}

	remaining := a.queue
	if len(remaining) != 2 {
		t.Fatalf("queue length = %d, want 2", len(remaining))
	}
	if remaining[0].id != first.id || remaining[1].id != third.id {
		t.Fatalf("queue order = [%s, %s], want [%s, %s]", remaining[0].id, remaining[1].id, first.id, third.id)
	}

	// Cancelling the same id again is idempotent: it's no longer
	// queued, so the second call finds nothing to remove.
	if a.cancelQueued(second.id) {
		t.Fatal("cancelQueued on an already-removed id returned true")
	}
}

// TestCancelByIDReturnsNoneForUnknownID mirrors
// cancel_by_id_returns_none_for_unknown_id: an id that matches neither
// the active request nor anything queued is silently ignored.
func TestCancelByIDReturnsNoneForUnknownID(t *testing.T) {
	h := newTestHandle(t)
	ctx := context.Background()
	if _, err := h.SwitchConnection(ctx, "test", dbgateway.ConnectionConfig{Backend: dbgateway.BackendMock}); err != nil {
		t.Fatalf("SwitchConnection: %v", err)
	}

	result, err := h.CancelQuery(ctx, RequestId("no-such-request"))
	if err != nil {
		t.Fatalf("CancelQuery: %v", err)
	}
	if result.Kind != ResultNone {
		t.Fatalf("Kind = %v, want ResultNone", result.Kind)
	}
}

func TestHandleInputReturnsQueueFullWhenBackedUp(t *testing.T) {
	core := NewCore(newTestStore(t), llm.NewService(llm.NewMockClient()))
	h := Spawn(core, 1)
	defer h.Close()

	ctx := context.Background()
	if _, err := h.SwitchConnection(ctx, "test", dbgateway.ConnectionConfig{Backend: dbgateway.BackendMock}); err != nil {
		t.Fatalf("SwitchConnection: %v", err)
	}

	// Fill the one queue slot directly via enqueue, racing many
	// attempts against the actor's own consumption of it, so at least
	// one overflows.
	var sawFull bool
	for i := 0; i < 20; i++ {
		req := request{kind: reqHandleInput, input: "/sql SELECT 1;", id: newRequestID(), reply: make(chan reply, 1)}
		if h.actor.enqueue(req) {
			h.actor.wake()
			go func() { <-req.reply }()
		} else {
			sawFull = true
		}
	}
	if !sawFull {
		t.Skip("scheduler drained the queue too fast to observe overflow; not a correctness failure")
	}
}

func TestHandleCloseReturnsWithinShutdownTimeout(t *testing.T) {
	core := NewCore(newTestStore(t), llm.NewService(llm.NewMockClient()))
	h := Spawn(core, 4)
	ctx := context.Background()
	if _, err := h.SwitchConnection(ctx, "test", dbgateway.ConnectionConfig{Backend: dbgateway.BackendMock}); err != nil {
		t.Fatalf("SwitchConnection: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- h.Close() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-time.After(closeTimeout + time.Second):
		t.Fatal("Close did not return within the shutdown timeout")
	}
}

package realm

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Handler arbitrates the challenges of a single realm. At most one contender is
// active at a time; everybody else waits in FIFO order until the realm reports
// success or failure.
//
// A Handler is shared by every request that touches its realm. All state
// changes happen under mu, but listener and contender callbacks are always
// made after mu is released: resolution logic is allowed to call back into the
// Arbiter from inside OnChallengeReceived, and contenders may resend and be
// challenged by this same realm again while being notified.
type Handler struct {
	name     string
	listener Listener
	lg       *slog.Logger

	mu      sync.Mutex
	active  Contender
	waiting []Contender
}

// NewHandler creates a Handler for the named realm backed by l.
func NewHandler(name string, l Listener) (*Handler, error) {
	if name == "" {
		return nil, ErrEmptyRealm
	}

	if l == nil {
		return nil, ErrNilListener
	}

	return &Handler{
		name:     name,
		listener: l,
		lg:       slog.With("realm", name),
	}, nil
}

// Name returns the realm this handler serves.
func (h *Handler) Name() string { return h.name }

// Active reports whether a contender currently holds the realm.
func (h *Handler) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active != nil
}

// Waiting returns the number of queued contenders.
func (h *Handler) Waiting() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.waiting)
}

// HandleChallenge makes c the active contender and starts the resolution
// logic, or queues c if another contender is already active.
func (h *Handler) HandleChallenge(ctx context.Context, c Contender, challenge json.RawMessage) {
	challengesReceived.WithLabelValues(h.name).Inc()

	h.mu.Lock()
	if h.active != nil {
		h.waiting = append(h.waiting, c)
		queued := len(h.waiting)
		h.mu.Unlock()

		challengesQueued.WithLabelValues(h.name).Inc()
		h.lg.Debug("challenge queued", "waiting", queued)
		return
	}
	h.active = c
	h.mu.Unlock()

	h.lg.Debug("challenge activated")
	h.listener.OnChallengeReceived(ctx, h, challenge)
}

// SubmitAnswer implements Arbiter.
func (h *Handler) SubmitAnswer(answer json.RawMessage) {
	h.mu.Lock()
	active := h.active
	h.active = nil
	h.mu.Unlock()

	if active == nil {
		h.lg.Debug("answer submitted with no active challenge, ignoring")
		return
	}

	realmOutcomes.WithLabelValues(h.name, "answer").Inc()

	if answer == nil {
		active.RemoveExpectedAnswer(h.name)
		return
	}

	active.SubmitAnswer(h.name, answer)
}

// SubmitSuccess implements Arbiter.
func (h *Handler) SubmitSuccess() {
	realmOutcomes.WithLabelValues(h.name, "success").Inc()
	h.release()
}

// SubmitFailure implements Arbiter.
func (h *Handler) SubmitFailure(info json.RawMessage) {
	realmOutcomes.WithLabelValues(h.name, "failure").Inc()
	h.fail(info)
}

// HandleSuccess delivers a success reported out-of-band (through another
// request's redirect result) to the listener and releases every contender
// holding or waiting on this realm.
func (h *Handler) HandleSuccess(ctx context.Context, success json.RawMessage) {
	realmOutcomes.WithLabelValues(h.name, "remote_success").Inc()
	h.listener.OnAuthenticationSuccess(ctx, success)
	h.release()
}

// NotifySuccess hands a success payload to the listener without touching the
// contenders holding or waiting on this realm.
func (h *Handler) NotifySuccess(ctx context.Context, success json.RawMessage) {
	realmOutcomes.WithLabelValues(h.name, "notified_success").Inc()
	h.listener.OnAuthenticationSuccess(ctx, success)
}

// HandleFailure delivers a failure reported out-of-band to the listener and
// fails every contender holding or waiting on this realm.
func (h *Handler) HandleFailure(ctx context.Context, failure json.RawMessage) {
	realmOutcomes.WithLabelValues(h.name, "remote_failure").Inc()
	h.listener.OnAuthenticationFailure(ctx, failure)
	h.fail(failure)
}

// drain takes the active contender (if any) followed by the waiting queue, in
// that order, and resets the handler.
func (h *Handler) drain() []Contender {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]Contender, 0, len(h.waiting)+1)
	if h.active != nil {
		result = append(result, h.active)
	}
	result = append(result, h.waiting...)

	h.active = nil
	h.waiting = nil

	return result
}

func (h *Handler) release() {
	cs := h.drain()
	h.lg.Debug("releasing contenders", "count", len(cs))

	for _, c := range cs {
		c.RemoveExpectedAnswer(h.name)
	}
}

func (h *Handler) fail(info json.RawMessage) {
	cs := h.drain()
	h.lg.Debug("failing contenders", "count", len(cs))

	for _, c := range cs {
		c.RequestFailed(info)
	}
}

package listener

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/TecharoHQ/maat/lib/realm"
	"github.com/TecharoHQ/maat/lib/store"
)

// DefaultMaxReplays is how many challenges a stored answer is replayed for
// before the wrapped listener is asked again.
const DefaultMaxReplays = 3

type cachedAnswer struct {
	Answer   json.RawMessage `json:"answer"`
	StoredAt time.Time       `json:"storedAt"`
}

// Cached remembers the answers Next submits for Realm and replays them for
// later challenges without asking Next. A failure reported for the realm drops
// the stored answer. Success resets the replay budget.
type Cached struct {
	Realm      string
	Next       realm.Listener
	Store      store.Interface
	TTL        time.Duration
	MaxReplays int
	Logger     *slog.Logger

	lock    sync.Mutex
	replays int
}

var _ realm.Listener = (*Cached)(nil)

func (c *Cached) db() *store.JSON[cachedAnswer] {
	return &store.JSON[cachedAnswer]{Underlying: c.Store, Prefix: "answer:"}
}

func (c *Cached) lg() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.With("realm", c.Realm)
}

// takeReplay spends one replay if any are left.
func (c *Cached) takeReplay() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	limit := c.MaxReplays
	if limit == 0 {
		limit = DefaultMaxReplays
	}

	if c.replays >= limit {
		return false
	}

	c.replays++
	return true
}

func (c *Cached) resetReplays() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.replays = 0
}

func (c *Cached) OnChallengeReceived(ctx context.Context, arb realm.Arbiter, challenge json.RawMessage) {
	ans, err := c.db().Get(ctx, c.Realm)
	switch {
	case err == nil && c.takeReplay():
		c.lg().Debug("replaying stored answer", "stored_at", ans.StoredAt)
		arb.SubmitAnswer(ans.Answer)
		return
	case err == nil:
		c.lg().Debug("stored answer replayed too often, asking again")
		c.forget(ctx)
	case !errors.Is(err, store.ErrNotFound):
		c.lg().Error("can't read stored answer", "err", err)
	}

	c.Next.OnChallengeReceived(ctx, &recordingArbiter{Arbiter: arb, ctx: context.WithoutCancel(ctx), c: c}, challenge)
}

func (c *Cached) OnAuthenticationSuccess(ctx context.Context, success json.RawMessage) {
	c.resetReplays()
	c.Next.OnAuthenticationSuccess(ctx, success)
}

func (c *Cached) OnAuthenticationFailure(ctx context.Context, failure json.RawMessage) {
	c.forget(ctx)
	c.Next.OnAuthenticationFailure(ctx, failure)
}

func (c *Cached) remember(ctx context.Context, answer json.RawMessage) {
	ttl := c.TTL
	if ttl <= 0 {
		return
	}

	if err := c.db().Set(ctx, c.Realm, cachedAnswer{Answer: answer, StoredAt: time.Now()}, ttl); err != nil {
		c.lg().Error("can't store answer", "err", err)
		return
	}

	c.resetReplays()
}

func (c *Cached) forget(ctx context.Context) {
	if err := c.db().Delete(ctx, c.Realm); err != nil && !errors.Is(err, store.ErrNotFound) {
		c.lg().Error("can't delete stored answer", "err", err)
	}
}

// recordingArbiter stores answers on their way to the handler.
type recordingArbiter struct {
	realm.Arbiter
	ctx context.Context
	c   *Cached
}

func (r *recordingArbiter) SubmitAnswer(answer json.RawMessage) {
	if answer != nil {
		r.c.remember(r.ctx, answer)
	}
	r.Arbiter.SubmitAnswer(answer)
}

func (r *recordingArbiter) SubmitFailure(info json.RawMessage) {
	r.c.forget(r.ctx)
	r.Arbiter.SubmitFailure(info)
}

// Package realmtest has test doubles for the realm package contracts.
package realmtest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/TecharoHQ/maat/internal"
	"github.com/TecharoHQ/maat/lib/realm"
	"github.com/google/uuid"
)

// Payload returns a unique challenge payload.
func Payload(t *testing.T) json.RawMessage {
	t.Helper()

	id := uuid.Must(uuid.NewV7())

	data, err := json.Marshal(map[string]string{
		"id":         id.String(),
		"randomData": internal.SHA256sum(time.Now().String()),
	})
	if err != nil {
		t.Fatal(err)
	}

	return data
}

// Event is something a Contender was told by a handler.
type Event struct {
	Kind    string // "answer", "removed" or "failed"
	Realm   string
	Payload json.RawMessage
}

// Contender records every notification it gets.
type Contender struct {
	lock   sync.Mutex
	events []Event
}

func (c *Contender) SubmitAnswer(realm string, answer json.RawMessage) {
	c.record(Event{Kind: "answer", Realm: realm, Payload: answer})
}

func (c *Contender) RemoveExpectedAnswer(realm string) {
	c.record(Event{Kind: "removed", Realm: realm})
}

func (c *Contender) RequestFailed(info json.RawMessage) {
	c.record(Event{Kind: "failed", Payload: info})
}

func (c *Contender) record(e Event) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the recorded events.
func (c *Contender) Events() []Event {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]Event(nil), c.events...)
}

// Listener records challenges and keeps the arbiter of the latest one so tests
// can resolve it later. If OnChallenge is set it is called instead of storing
// anything, which lets a test answer synchronously.
type Listener struct {
	OnChallenge func(ctx context.Context, arb realm.Arbiter, challenge json.RawMessage)

	lock       sync.Mutex
	challenges []json.RawMessage
	arbiter    realm.Arbiter
	successes  []json.RawMessage
	failures   []json.RawMessage
}

func (l *Listener) OnChallengeReceived(ctx context.Context, arb realm.Arbiter, challenge json.RawMessage) {
	l.lock.Lock()
	l.challenges = append(l.challenges, challenge)
	l.arbiter = arb
	fn := l.OnChallenge
	l.lock.Unlock()

	if fn != nil {
		fn(ctx, arb, challenge)
	}
}

func (l *Listener) OnAuthenticationSuccess(_ context.Context, success json.RawMessage) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.successes = append(l.successes, success)
}

func (l *Listener) OnAuthenticationFailure(_ context.Context, failure json.RawMessage) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.failures = append(l.failures, failure)
}

// Challenges returns the challenges received so far.
func (l *Listener) Challenges() []json.RawMessage {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]json.RawMessage(nil), l.challenges...)
}

// Arbiter returns the arbiter of the latest challenge.
func (l *Listener) Arbiter() realm.Arbiter {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.arbiter
}

// Successes returns the out-of-band success payloads received so far.
func (l *Listener) Successes() []json.RawMessage {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]json.RawMessage(nil), l.successes...)
}

// Failures returns the out-of-band failure payloads received so far.
func (l *Listener) Failures() []json.RawMessage {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]json.RawMessage(nil), l.failures...)
}

// NewHandler builds a realm.Handler or fails the test.
func NewHandler(t *testing.T, name string, l realm.Listener) *realm.Handler {
	t.Helper()

	h, err := realm.NewHandler(name, l)
	if err != nil {
		t.Fatal(err)
	}

	return h
}

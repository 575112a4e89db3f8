package realm

import (
	"context"
	"encoding/json"
)

// Contender is a request attempt waiting on a realm to resolve its challenge.
// Handlers only ever talk to contenders through this interface.
type Contender interface {
	// SubmitAnswer records the answer for realm on the contender.
	SubmitAnswer(realm string, answer json.RawMessage)

	// RemoveExpectedAnswer marks realm as needing no answer.
	RemoveExpectedAnswer(realm string)

	// RequestFailed aborts the contender's whole request attempt.
	RequestFailed(info json.RawMessage)
}

// Arbiter is the handle resolution logic uses to report the outcome of a
// challenge back to the realm's Handler.
type Arbiter interface {
	// SubmitAnswer hands an answer to the active contender. A nil answer means
	// no answer is needed.
	SubmitAnswer(answer json.RawMessage)

	// SubmitSuccess reports that the realm needs no credential for the active
	// and every queued contender.
	SubmitSuccess()

	// SubmitFailure fails the active and every queued contender with info.
	SubmitFailure(info json.RawMessage)
}

// Listener is the resolution logic of a realm. Implementations may answer
// synchronously from OnChallengeReceived or keep the Arbiter and answer later
// from another goroutine, but they must eventually call one of its methods or
// the realm's queued contenders wait forever.
//
// A synchronous answer resends the request on the same goroutine, and a new
// challenge reaches OnChallengeReceived again from inside that call. Callers
// bound this through authreq.Options.MaxAttempts.
type Listener interface {
	// OnChallengeReceived is called when a contender becomes active.
	OnChallengeReceived(ctx context.Context, arb Arbiter, challenge json.RawMessage)

	// OnAuthenticationSuccess is called when the server reports success for the realm.
	OnAuthenticationSuccess(ctx context.Context, success json.RawMessage)

	// OnAuthenticationFailure is called when the server reports failure for the realm.
	OnAuthenticationFailure(ctx context.Context, failure json.RawMessage)
}

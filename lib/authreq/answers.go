package authreq

import (
	"encoding/json"
	"fmt"
	"sort"
)

// AnswerState is the state of one realm in an AnswerSet.
type AnswerState int

const (
	// AnswerUnknown is reported for realms the set does not track.
	AnswerUnknown AnswerState = iota

	// AnswerUnfilled means the realm still owes an answer for this attempt.
	AnswerUnfilled

	// AnswerFilled means an answer was supplied and will be sent on resend.
	AnswerFilled

	// AnswerNotNeeded means the realm resolved without supplying a credential.
	AnswerNotNeeded
)

func (s AnswerState) String() string {
	switch s {
	case AnswerUnfilled:
		return "unfilled"
	case AnswerFilled:
		return "filled"
	case AnswerNotNeeded:
		return "not_needed"
	default:
		return "unknown"
	}
}

type answerEntry struct {
	state  AnswerState
	answer json.RawMessage
}

// AnswerSet tracks, per realm, whether a request attempt has been given the
// answer it needs. It is not safe for concurrent use; the owning Manager
// serializes access.
type AnswerSet struct {
	entries map[string]answerEntry
}

func NewAnswerSet() *AnswerSet {
	return &AnswerSet{entries: map[string]answerEntry{}}
}

// Expect starts a new attempt for realms: each one is reset to unfilled.
// Answers for other realms are kept.
func (a *AnswerSet) Expect(realms ...string) {
	for _, r := range realms {
		a.entries[r] = answerEntry{state: AnswerUnfilled}
	}
}

// Fill stores answer for realm. A realm only leaves the unfilled state once
// per attempt, so filling a realm that was already resolved is ignored and
// reported as false. Realms that were never expected are accepted.
func (a *AnswerSet) Fill(realm string, answer json.RawMessage) bool {
	if e, ok := a.entries[realm]; ok && e.state != AnswerUnfilled {
		return false
	}

	a.entries[realm] = answerEntry{state: AnswerFilled, answer: answer}
	return true
}

// Clear marks an unfilled realm as resolved without an answer.
func (a *AnswerSet) Clear(realm string) bool {
	e, ok := a.entries[realm]
	if !ok {
		return false
	}

	if e.state != AnswerUnfilled {
		return false
	}

	a.entries[realm] = answerEntry{state: AnswerNotNeeded}
	return true
}

// State returns the state of realm.
func (a *AnswerSet) State(realm string) AnswerState {
	e, ok := a.entries[realm]
	if !ok {
		return AnswerUnknown
	}
	return e.state
}

// Complete reports whether no realm is unfilled. An empty set is complete.
func (a *AnswerSet) Complete() bool {
	for _, e := range a.entries {
		if e.state == AnswerUnfilled {
			return false
		}
	}
	return true
}

// Len returns the number of tracked realms.
func (a *AnswerSet) Len() int { return len(a.entries) }

// Realms returns the tracked realms, sorted.
func (a *AnswerSet) Realms() []string {
	result := make([]string, 0, len(a.entries))
	for r := range a.entries {
		result = append(result, r)
	}
	sort.Strings(result)
	return result
}

// AuthorizationHeader serializes every filled answer into a bearer credential
// of the form `Bearer {"realm":answer,...}`. ok is false when no answer has
// been filled yet.
func (a *AnswerSet) AuthorizationHeader() (value string, ok bool, err error) {
	filled := map[string]json.RawMessage{}
	for r, e := range a.entries {
		if e.state == AnswerFilled {
			filled[r] = e.answer
		}
	}

	if len(filled) == 0 {
		return "", false, nil
	}

	data, err := json.Marshal(filled)
	if err != nil {
		return "", false, fmt.Errorf("authreq: can't encode answers: %w", err)
	}

	return "Bearer " + string(data), true, nil
}

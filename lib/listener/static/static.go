// Package static resolves challenges with a fixed outcome from configuration.
package static

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TecharoHQ/maat/lib/listener"
	"github.com/TecharoHQ/maat/lib/realm"
)

var (
	ErrMissingAnswer  = errors.New("static: outcome \"answer\" needs an answer")
	ErrUnknownOutcome = errors.New("static: unknown outcome")
)

// Outcomes.
const (
	OutcomeAnswer    = "answer"
	OutcomeNotNeeded = "not_needed"
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
)

func init() {
	listener.Register("static", Factory{})
}

type Config struct {
	Outcome string          `json:"outcome,omitempty"`
	Answer  json.RawMessage `json:"answer,omitempty"`
	Info    json.RawMessage `json:"info,omitempty"`
}

func (c Config) Valid() error {
	switch c.outcome() {
	case OutcomeAnswer:
		if len(c.Answer) == 0 {
			return ErrMissingAnswer
		}
	case OutcomeNotNeeded, OutcomeSuccess, OutcomeFailure:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, c.Outcome)
	}

	return nil
}

func (c Config) outcome() string {
	if c.Outcome == "" {
		return OutcomeAnswer
	}
	return c.Outcome
}

type Factory struct{}

func (Factory) Build(_ context.Context, in *listener.BuildInput) (realm.Listener, error) {
	cfg, err := parse(in.Parameters)
	if err != nil {
		return nil, err
	}

	return &Impl{cfg: cfg, lg: in.Log()}, nil
}

func (Factory) Valid(params json.RawMessage) error {
	_, err := parse(params)
	return err
}

func parse(params json.RawMessage) (Config, error) {
	cfg, err := listener.DecodeParameters[Config](params)
	if err != nil {
		return cfg, err
	}

	if err := cfg.Valid(); err != nil {
		return cfg, fmt.Errorf("%w: %w", listener.ErrBadParameters, err)
	}

	return cfg, nil
}

// Impl reports the configured outcome for every challenge.
type Impl struct {
	cfg Config
	lg  *slog.Logger
}

func (i *Impl) OnChallengeReceived(_ context.Context, arb realm.Arbiter, _ json.RawMessage) {
	i.lg.Debug("resolving challenge", "outcome", i.cfg.outcome())

	switch i.cfg.outcome() {
	case OutcomeAnswer:
		arb.SubmitAnswer(i.cfg.Answer)
	case OutcomeNotNeeded:
		arb.SubmitAnswer(nil)
	case OutcomeSuccess:
		arb.SubmitSuccess()
	case OutcomeFailure:
		arb.SubmitFailure(i.cfg.Info)
	}
}

func (i *Impl) OnAuthenticationSuccess(context.Context, json.RawMessage) {
	i.lg.Debug("realm reported success")
}

func (i *Impl) OnAuthenticationFailure(_ context.Context, failure json.RawMessage) {
	i.lg.Warn("realm reported failure", "info", string(failure))
}

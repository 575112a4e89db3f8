// Package prompt asks a human at a terminal for the fields of a challenge
// answer.
package prompt

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/TecharoHQ/maat/lib/listener"
	"github.com/TecharoHQ/maat/lib/localization"
	"github.com/TecharoHQ/maat/lib/realm"
)

var (
	ErrNoFields       = errors.New("prompt: at least one field is required")
	ErrDuplicateField = errors.New("prompt: field listed twice")
)

func init() {
	listener.Register("prompt", Factory{})
}

type Config struct {
	Fields        []string `json:"fields"`
	ShowChallenge bool     `json:"show_challenge,omitempty"`
}

func (c Config) Valid() error {
	if len(c.Fields) == 0 {
		return ErrNoFields
	}

	seen := map[string]bool{}
	for _, f := range c.Fields {
		if seen[f] {
			return fmt.Errorf("%w: %q", ErrDuplicateField, f)
		}
		seen[f] = true
	}

	return nil
}

type Factory struct{}

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

func (Factory) Build(_ context.Context, in *listener.BuildInput) (realm.Listener, error) {
	cfg, err := parse(in.Parameters)
	if err != nil {
		return nil, err
	}

	r := in.In
	if r == nil {
		r = os.Stdin
	}

	w := in.Out
	if w == nil {
		w = os.Stderr
	}

	loc := in.Localizer
	if loc == nil {
		loc = localization.NewLocalizationService().GetLocalizer(localization.LanguageFromEnv())
	}

	return &Impl{
		realm: in.Realm,
		cfg:   cfg,
		input: bufio.NewScanner(r),
		out:   w,
		loc:   loc,
		lg:    in.Log(),
	}, nil
}

// Impl prompts synchronously: the goroutine dispatching the challenge blocks
// until every field has been read.
type Impl struct {
	realm string
	cfg   Config
	loc   *localization.SimpleLocalizer
	lg    *slog.Logger

	lock  sync.Mutex
	input *bufio.Scanner
	out   io.Writer
}

func (i *Impl) OnChallengeReceived(_ context.Context, arb realm.Arbiter, challenge json.RawMessage) {
	answer, err := i.ask(challenge)
	if err != nil {
		i.lg.Error("can't read answer", "err", err)
		info, _ := json.Marshal(map[string]string{"error": err.Error()})
		arb.SubmitFailure(info)
		return
	}

	if answer == nil {
		i.lg.Debug("user skipped the challenge")
		arb.SubmitAnswer(nil)
		return
	}

	data, err := json.Marshal(answer)
	if err != nil {
		info, _ := json.Marshal(map[string]string{"error": err.Error()})
		arb.SubmitFailure(info)
		return
	}

	arb.SubmitAnswer(data)
}

// ask reads every configured field. It returns nil when all of them were left
// empty.
func (i *Impl) ask(challenge json.RawMessage) (map[string]string, error) {
	i.lock.Lock()
	defer i.lock.Unlock()

	i.println(i.loc.TData("prompt_challenge", map[string]any{"Realm": i.realm}))
	if i.cfg.ShowChallenge && len(challenge) != 0 {
		i.println(i.loc.TData("prompt_challenge_details", map[string]any{"Challenge": string(challenge)}))
	}
	i.println(i.loc.T("prompt_skip_hint"))

	result := make(map[string]string, len(i.cfg.Fields))
	var filled bool

	for _, field := range i.cfg.Fields {
		fmt.Fprint(i.out, i.loc.TData("prompt_field", map[string]any{"Field": field}))

		if !i.input.Scan() {
			i.println("")
			i.println(i.loc.TData("prompt_input_closed", map[string]any{"Realm": i.realm}))

			if err := i.input.Err(); err != nil {
				return nil, err
			}
			return nil, io.ErrUnexpectedEOF
		}

		val := strings.TrimSpace(i.input.Text())
		if val != "" {
			filled = true
		}
		result[field] = val
	}

	if !filled {
		return nil, nil
	}

	return result, nil
}

func (i *Impl) println(msg string) {
	fmt.Fprintln(i.out, msg)
}

func (i *Impl) OnAuthenticationSuccess(context.Context, json.RawMessage) {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.println(i.loc.TData("prompt_success", map[string]any{"Realm": i.realm}))
}

func (i *Impl) OnAuthenticationFailure(_ context.Context, failure json.RawMessage) {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.println(i.loc.TData("prompt_failure", map[string]any{"Realm": i.realm, "Reason": string(failure)}))
}

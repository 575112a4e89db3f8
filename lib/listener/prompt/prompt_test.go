package prompt

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/TecharoHQ/maat/lib/listener"
	"github.com/TecharoHQ/maat/lib/localization"
	"github.com/TecharoHQ/maat/lib/realm/realmtest"
)

func TestFactoryValid(t *testing.T) {
	for _, tt := range []struct {
		name   string
		params string
		err    error
	}{
		{name: "ok", params: `{"fields": ["username", "password"]}`},
		{name: "no parameters", err: ErrNoFields},
		{name: "empty fields", params: `{"fields": []}`, err: ErrNoFields},
		{name: "duplicate", params: `{"fields": ["pin", "pin"]}`, err: ErrDuplicateField},
		{name: "not json", params: `[`, err: listener.ErrBadParameters},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if err := (Factory{}).Valid(json.RawMessage(tt.params)); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("wrong error")
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	for _, tt := range []struct {
		name      string
		lang      string
		input     string
		show      bool
		kind      string
		payload   string
		wantInOut []string
	}{
		{
			name:      "answers every field",
			lang:      "en",
			input:     "mimi\n hunter2 \n",
			kind:      "answer",
			payload:   `{"password":"hunter2","username":"mimi"}`,
			wantInOut: []string{`The realm "login" needs you to authenticate.`, "username: ", "password: "},
		},
		{
			name:      "shows challenge in german",
			lang:      "de",
			input:     "a\nb\n",
			show:      true,
			kind:      "answer",
			payload:   `{"password":"b","username":"a"}`,
			wantInOut: []string{`Der Bereich "login" verlangt eine Anmeldung.`, `Angaben des Servers: {"hint":"x"}`},
		},
		{
			name:  "all empty means not needed",
			lang:  "en",
			input: "\n\n",
			kind:  "removed",
		},
		{
			name:      "input closed fails",
			lang:      "en",
			input:     "only-one\n",
			kind:      "failed",
			payload:   `{"error":"unexpected EOF"}`,
			wantInOut: []string{`No more input, giving up on the realm "login".`},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			l, err := Factory{}.Build(t.Context(), &listener.BuildInput{
				Realm:      "login",
				Parameters: json.RawMessage(`{"fields":["username","password"],"show_challenge":` + boolString(tt.show) + `}`),
				In:         strings.NewReader(tt.input),
				Out:        &out,
				Localizer:  localization.NewLocalizationService().GetLocalizer(tt.lang),
			})
			if err != nil {
				t.Fatal(err)
			}

			h := realmtest.NewHandler(t, "login", l)
			c := &realmtest.Contender{}
			h.HandleChallenge(t.Context(), c, json.RawMessage(`{"hint":"x"}`))

			ev := c.Events()
			if len(ev) != 1 {
				t.Fatalf("got %d events, want 1", len(ev))
			}

			if ev[0].Kind != tt.kind || string(ev[0].Payload) != tt.payload {
				t.Errorf("got %s %s, want %s %s", ev[0].Kind, ev[0].Payload, tt.kind, tt.payload)
			}

			for _, want := range tt.wantInOut {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output does not contain %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestOutOfBandMessages(t *testing.T) {
	var out bytes.Buffer

	l, err := Factory{}.Build(t.Context(), &listener.BuildInput{
		Realm:      "login",
		Parameters: json.RawMessage(`{"fields":["pin"]}`),
		In:         strings.NewReader(""),
		Out:        &out,
		Localizer:  localization.NewLocalizationService().GetLocalizer("en"),
	})
	if err != nil {
		t.Fatal(err)
	}

	l.OnAuthenticationSuccess(t.Context(), nil)
	l.OnAuthenticationFailure(t.Context(), json.RawMessage(`{"reason":"locked"}`))

	for _, want := range []string{
		`The realm "login" accepted your authentication.`,
		`The realm "login" rejected your authentication: {"reason":"locked"}`,
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, out.String())
		}
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

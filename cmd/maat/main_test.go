package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/TecharoHQ/maat"
	"github.com/TecharoHQ/maat/lib/authreq"
	"github.com/TecharoHQ/maat/lib/config"
	"github.com/TecharoHQ/maat/lib/store"
)

func TestKVFlag(t *testing.T) {
	kv := kvFlag{}

	for _, v := range []string{"b=2", "a=1", "c=x=y", "empty="} {
		if err := kv.Set(v); err != nil {
			t.Fatalf("Set(%q): %v", v, err)
		}
	}

	if got, want := kv.String(), "a=1,b=2,c=x=y,empty="; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	for _, bad := range []string{"novalue", "=1"} {
		if err := kv.Set(bad); err == nil {
			t.Errorf("Set(%q) did not fail", bad)
		}
	}
}

func TestReport(t *testing.T) {
	for _, tt := range []struct {
		name       string
		resp       *authreq.Response
		err        error
		wantCode   int
		wantStdout string
		wantStderr []string
	}{
		{
			name:       "success",
			resp:       &authreq.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(`{"ok":true}`)},
			wantStdout: `{"ok":true}`,
			wantStderr: []string{"status: 200"},
		},
		{
			name: "redirect",
			resp: &authreq.Response{
				StatusCode: http.StatusFound,
				Header:     http.Header{"Location": {"https://app.example.com/done"}},
			},
			wantStderr: []string{"status: 302", "location: https://app.example.com/done"},
		},
		{
			name: "realm failure",
			err: &authreq.Error{
				Code: authreq.CodeUnableToConnect,
				Kind: authreq.ErrRemoteAuthFailure,
				Info: json.RawMessage(`{"reason":"locked"}`),
			},
			wantCode:   1,
			wantStderr: []string{"UNABLE_TO_CONNECT", `details: {"reason":"locked"}`},
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantCode:   1,
			wantStderr: []string{"request failed: boom"},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer

			if code := report(&stdout, &stderr, tt.resp, tt.err); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}

			if stdout.String() != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.wantStdout)
			}

			for _, want := range tt.wantStderr {
				if !strings.Contains(stderr.String(), want) {
					t.Errorf("stderr %q does not contain %q", stderr.String(), want)
				}
			}
		})
	}
}

func TestExecuteStopsSignalHandling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.Header().Set("WWW-Authenticate", maat.CompositeChallenge)
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"challenges":{"device":{}}}`)
			return
		}
		fmt.Fprint(w, "welcome")
	}))
	defer srv.Close()

	var stops int
	orig := notifyContext
	notifyContext = func(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
		ctx, stop := orig(parent, sigs...)
		return ctx, func() {
			stops++
			stop()
		}
	}
	t.Cleanup(func() { notifyContext = orig })

	for _, tt := range []struct {
		name     string
		outcome  string
		wantCode int
	}{
		{name: "success", outcome: `{"answer":{"token":"abc"}}`},
		{name: "realm failure", outcome: `{"outcome":"failure"}`, wantCode: 1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			stops = 0
			cfg := &config.Config{
				BackendRoute: srv.URL,
				TenantID:     "tenant",
				Store:        store.Config{Backend: "memory"},
				Realms: []config.Realm{
					{Name: "device", Listener: "static", Parameters: json.RawMessage(tt.outcome)},
				},
			}

			var stdout, stderr bytes.Buffer
			if code := execute(cfg, "token", &stdout, &stderr); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr.String())
			}

			if stops != 1 {
				t.Errorf("signal handling stopped %d times, want 1", stops)
			}
		})
	}
}

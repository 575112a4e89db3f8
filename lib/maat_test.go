package lib

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TecharoHQ/maat"
	"github.com/TecharoHQ/maat/lib/authreq"
	"github.com/TecharoHQ/maat/lib/config"
	"github.com/TecharoHQ/maat/lib/store"
)

type backend struct {
	requests atomic.Int64
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.requests.Add(1)

	if !strings.HasPrefix(r.URL.Path, "/"+maat.AuthServerName+"/"+maat.AuthPath+"tenant/") {
		http.NotFound(w, r)
		return
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		w.Header().Set("WWW-Authenticate", maat.CompositeChallenge)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"challenges":{"device":{"nonce":"n1"}}}`)
		return
	}

	fmt.Fprint(w, auth)
}

func testConfig(srvURL string, parameters string) *config.Config {
	return &config.Config{
		BackendRoute:   srvURL,
		TenantID:       "tenant",
		DefaultTimeout: config.Duration(5 * time.Second),
		Store:          store.Config{Backend: "memory"},
		Realms: []config.Realm{
			{Name: "device", Listener: "static", Parameters: json.RawMessage(parameters)},
		},
	}
}

func TestClientDo(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b)
	defer srv.Close()

	c, err := New(t.Context(), Options{Config: testConfig(srv.URL, `{"answer":{"token":"abc"}}`)})
	if err != nil {
		t.Fatal(err)
	}

	if got := c.Registry().Realms(); len(got) != 1 || got[0] != "device" {
		t.Errorf("realms = %v", got)
	}

	resp, err := c.Do(t.Context(), "token", nil)
	if err != nil {
		t.Fatal(err)
	}

	const want = `Bearer {"device":{"token":"abc"}}`
	if string(resp.Body) != want {
		t.Logf("want: %s", want)
		t.Logf("got:  %s", resp.Body)
		t.Error("backend saw the wrong Authorization header")
	}

	if n := b.requests.Load(); n != 2 {
		t.Errorf("backend saw %d requests, want 2", n)
	}
}

func TestClientDoRealmFailure(t *testing.T) {
	srv := httptest.NewServer(&backend{})
	defer srv.Close()

	c, err := New(t.Context(), Options{Config: testConfig(srv.URL, `{"outcome":"failure","info":{"reason":"locked"}}`)})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Do(t.Context(), "token", nil)

	var aerr *authreq.Error
	if !errors.As(err, &aerr) {
		t.Fatalf("wanted *authreq.Error, got %v", err)
	}

	if !errors.Is(err, authreq.ErrRemoteAuthFailure) {
		t.Errorf("wanted ErrRemoteAuthFailure, got %v", err)
	}
}

func TestClientSend(t *testing.T) {
	srv := httptest.NewServer(&backend{})
	defer srv.Close()

	c, err := New(t.Context(), Options{Config: testConfig(srv.URL, `{"answer":{"token":"abc"}}`)})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan *authreq.Response, 1)
	c.Send(t.Context(), "token", nil, authreq.ListenerFuncs{
		Success: func(resp *authreq.Response) { done <- resp },
		Failure: func(err error) { t.Errorf("request failed: %v", err) },
	})

	select {
	case resp := <-done:
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d", resp.StatusCode)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome delivered")
	}
}

func TestClientCachesAnswers(t *testing.T) {
	srv := httptest.NewServer(&backend{})
	defer srv.Close()

	cfg := testConfig(srv.URL, `{"answer":{"token":"abc"}}`)
	cfg.Realms[0].CacheTTL = config.Duration(time.Minute)

	c, err := New(t.Context(), Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Do(t.Context(), "token", nil); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Store().Get(t.Context(), "answer:device"); err != nil {
		t.Errorf("answer was not stored: %v", err)
	}
}

func TestNewNoConfig(t *testing.T) {
	if _, err := New(t.Context(), Options{}); !errors.Is(err, ErrNoConfig) {
		t.Errorf("wanted ErrNoConfig, got %v", err)
	}
}

package authreq

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
)

func TestParseRedirectResult(t *testing.T) {
	withResult := func(raw string) string {
		return "https://app.example.com/callback?" + url.Values{"wl_result": {raw}}.Encode()
	}

	for _, tt := range []struct {
		name      string
		location  string
		found     bool
		failures  []string
		successes []string
		err       error
	}{
		{
			name:     "no query",
			location: "https://app.example.com/callback",
		},
		{
			name:     "other parameters only",
			location: "https://app.example.com/callback?state=abc",
		},
		{
			name:      "success",
			location:  withResult(`{"WL-Authentication-Success":{"user":{"id":"1"}}}`),
			found:     true,
			successes: []string{"user"},
		},
		{
			name:     "failure",
			location: withResult(`{"WL-Authentication-Failure":{"realmX":{"reason":"bad"}}}`),
			found:    true,
			failures: []string{"realmX"},
		},
		{
			name:     "not json",
			location: withResult(`{"WL-Authentication-Failure":`),
			found:    true,
			err:      ErrBadRedirectResult,
		},
		{
			name:     "broken location",
			location: "http://[::1",
			err:      ErrBadRedirectResult,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			res, found, err := ParseRedirectResult(tt.location)
			if !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Fatal("wrong error")
			}

			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}

			if err != nil || !found {
				return
			}

			for _, r := range tt.failures {
				if _, ok := res.Failures[r]; !ok {
					t.Errorf("missing failure for %s", r)
				}
			}

			for _, r := range tt.successes {
				if _, ok := res.Successes[r]; !ok {
					t.Errorf("missing success for %s", r)
				}
			}
		})
	}
}

func TestExtractSecureJSON(t *testing.T) {
	for _, tt := range []struct {
		name, in, want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "wrapped", in: "/*-secure-\n{\"a\":1}*/", want: `{"a":1}`},
		{name: "wrapped with whitespace", in: " /*-secure-\n {\"a\":1} \n*/\n", want: `{"a":1}`},
		{name: "unterminated", in: "/*-secure-\n{\"a\":1}", want: "/*-secure-\n{\"a\":1}"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(ExtractSecureJSON([]byte(tt.in))); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChallengesOf(t *testing.T) {
	for _, tt := range []struct {
		name string
		body string
		want int
	}{
		{name: "no body"},
		{name: "not json", body: "<html></html>"},
		{name: "no challenges", body: `{"ok":true}`},
		{name: "empty challenges", body: `{"challenges":{}}`},
		{name: "two realms", body: `{"challenges":{"a":{},"b":{"x":1}}}`, want: 2},
		{name: "secure wrapped", body: "/*-secure-\n{\"challenges\":{\"a\":{}}}*/", want: 1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := challengesOf(&Response{StatusCode: http.StatusOK, Body: []byte(tt.body)})
			if len(got) != tt.want {
				t.Errorf("got %d challenges, want %d", len(got), tt.want)
			}
		})
	}
}

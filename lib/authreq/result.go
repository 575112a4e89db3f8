package authreq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/TecharoHQ/maat"
)

// RedirectResult is the per-realm outcome carried by a redirect Location.
type RedirectResult struct {
	Failures  map[string]json.RawMessage `json:"WL-Authentication-Failure,omitempty"`
	Successes map[string]json.RawMessage `json:"WL-Authentication-Success,omitempty"`
}

// ParseRedirectResult extracts the result parameter from a Location header
// value. found is false when the location carries no result.
func ParseRedirectResult(location string) (result *RedirectResult, found bool, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, false, fmt.Errorf("%w: location %q: %w", ErrBadRedirectResult, location, err)
	}

	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, false, fmt.Errorf("%w: query: %w", ErrBadRedirectResult, err)
	}

	if !q.Has(maat.ResultParam) {
		return nil, false, nil
	}

	result = &RedirectResult{}
	if err := json.Unmarshal([]byte(q.Get(maat.ResultParam)), result); err != nil {
		return nil, true, fmt.Errorf("%w: %w", ErrBadRedirectResult, err)
	}

	return result, true, nil
}

var (
	securePrefix = []byte("/*-secure-")
	secureSuffix = []byte("*/")
)

// ExtractSecureJSON removes the `/*-secure- ... */` wrapper some backends put
// around JSON bodies. Bodies without the wrapper are returned unchanged.
func ExtractSecureJSON(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if !bytes.HasPrefix(trimmed, securePrefix) || !bytes.HasSuffix(trimmed, secureSuffix) {
		return body
	}

	trimmed = trimmed[len(securePrefix) : len(trimmed)-len(secureSuffix)]
	return bytes.TrimSpace(trimmed)
}

// challengesOf returns the challenges object of a response body, or nil when
// the body is not JSON or has none.
func challengesOf(resp *Response) map[string]json.RawMessage {
	if resp == nil || len(resp.Body) == 0 {
		return nil
	}

	var body struct {
		Challenges map[string]json.RawMessage `json:"challenges"`
	}

	if err := json.Unmarshal(ExtractSecureJSON(resp.Body), &body); err != nil {
		return nil
	}

	if len(body.Challenges) == 0 {
		return nil
	}

	return body.Challenges
}

// isCompositeChallenge reports whether resp is a 401 that requires every
// challenged realm to answer before the request is resent.
func isCompositeChallenge(resp *Response) bool {
	return resp != nil &&
		resp.StatusCode == http.StatusUnauthorized &&
		resp.FirstHeader("WWW-Authenticate") == maat.CompositeChallenge
}

package authreq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Transport performs one HTTP exchange. Implementations must not follow
// redirects when Request.FollowRedirects is false.
//
// A failed exchange that still produced an HTTP response (for example a 401)
// must return a *StatusError holding that response so it can be inspected for
// challenges.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Request is what the Manager asks a Transport to send.
type Request struct {
	Method          string
	URL             string
	Timeout         time.Duration
	Header          http.Header
	Query           url.Values // sent for GET requests
	Form            url.Values // sent as the body of every other method
	FollowRedirects bool
}

// Response is a completed HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// FirstHeader returns the first value of the named header, or "".
func (r *Response) FirstHeader(name string) string {
	if r == nil {
		return ""
	}
	return r.Header.Get(name)
}

// Headers returns every value of the named header.
func (r *Response) Headers(name string) []string {
	if r == nil {
		return nil
	}
	return r.Header.Values(name)
}

// IsRedirect reports whether the response is a 3xx redirect.
func (r *Response) IsRedirect() bool {
	if r == nil {
		return false
	}

	switch r.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// StatusError is returned by a Transport for an exchange that completed with a
// failing HTTP status.
type StatusError struct {
	Code     ErrorCode
	Response *Response
}

func (e *StatusError) Error() string {
	if e.Response == nil {
		return "authreq: request failed: " + e.Code.String()
	}
	return fmt.Sprintf("authreq: server responded with status %d", e.Response.StatusCode)
}

// RequestOptions are the caller controlled parts of a request.
type RequestOptions struct {
	Method     string
	Timeout    time.Duration
	Headers    map[string]string
	Parameters map[string]string
}

// Config is the backend configuration read while building requests.
type Config struct {
	BackendRoute   string
	TenantID       string
	RewriteDomain  string
	DefaultTimeout time.Duration
}

// ResponseListener receives the terminal outcome of a request. Exactly one of
// its methods is called per Manager.
type ResponseListener interface {
	OnSuccess(resp *Response)
	OnFailure(err error)
}

// ListenerFuncs adapts a pair of functions to ResponseListener. Nil functions
// are skipped.
type ListenerFuncs struct {
	Success func(resp *Response)
	Failure func(err error)
}

func (l ListenerFuncs) OnSuccess(resp *Response) {
	if l.Success != nil {
		l.Success(resp)
	}
}

func (l ListenerFuncs) OnFailure(err error) {
	if l.Failure != nil {
		l.Failure(err)
	}
}

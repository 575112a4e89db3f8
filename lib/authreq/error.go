package authreq

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("authreq: invalid input")
	ErrRealmHandlerMissing = errors.New("authreq: no challenge handler registered for realm")
	ErrRemoteAuthFailure   = errors.New("authreq: realm reported authentication failure")
	ErrTransport           = errors.New("authreq: transport failure")
	ErrBadRedirectResult   = errors.New("authreq: can't decode redirect result")
	ErrTooManyAttempts     = errors.New("authreq: too many attempts")
)

// ErrorCode classifies a failed request for the caller.
type ErrorCode int

const (
	CodeUnableToConnect ErrorCode = iota
	CodeServerError
	CodeTimeout
	CodeUnknown
)

func (c ErrorCode) String() string {
	switch c {
	case CodeUnableToConnect:
		return "UNABLE_TO_CONNECT"
	case CodeServerError:
		return "SERVER_ERROR"
	case CodeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Error is the single failure type delivered to a ResponseListener.
type Error struct {
	Code     ErrorCode
	Kind     error           // one of the package sentinels
	Response *Response       // response that caused the failure, if any
	Info     json.RawMessage // diagnostic payload reported by a realm
	Err      error           // underlying cause
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Code, e.Kind, e.Err)
	case len(e.Info) != 0:
		return fmt.Sprintf("%s: %v: %s", e.Code, e.Kind, e.Info)
	default:
		return fmt.Sprintf("%s: %v", e.Code, e.Kind)
	}
}

func (e *Error) Unwrap() []error {
	var result []error
	if e.Kind != nil {
		result = append(result, e.Kind)
	}
	if e.Err != nil {
		result = append(result, e.Err)
	}
	return result
}

func kindLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrRealmHandlerMissing):
		return "realm_handler_missing"
	case errors.Is(err, ErrRemoteAuthFailure):
		return "remote_auth_failure"
	case errors.Is(err, ErrBadRedirectResult):
		return "bad_redirect_result"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}

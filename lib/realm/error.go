package realm

import "errors"

var (
	ErrEmptyRealm     = errors.New("realm: name is empty")
	ErrDuplicateRealm = errors.New("realm: handler already registered")
	ErrNilListener    = errors.New("realm: listener is nil")
)

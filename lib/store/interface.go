// Package store persists realm answers so they can be replayed for later
// challenges of the same realm.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a key is missing or has expired.
	ErrNotFound = errors.New("store: key not found")

	// ErrCantDecode is returned when a stored value can't be turned back into
	// what was put in.
	ErrCantDecode = errors.New("store: can't decode value")

	// ErrCantEncode is returned when a value can't be written in the format
	// the backend uses.
	ErrCantEncode = errors.New("store: can't encode value")

	// ErrBadConfig is returned when a backend's parameters are invalid.
	ErrBadConfig = errors.New("store: configuration is invalid")
)

// Interface is a byte-oriented key/value store with per-key expiry. It can be
// backed by memory, a local database or a shared server.
type Interface interface {
	// Delete removes key. Deleting a missing key returns ErrNotFound.
	Delete(ctx context.Context, key string) error

	// Get returns the value of key if it exists and has not expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key until expiry has passed.
	Set(ctx context.Context, key string, value []byte, expiry time.Duration) error
}

// JSON stores values of type T as JSON in an Interface, optionally namespaced
// with Prefix.
type JSON[T any] struct {
	Underlying Interface
	Prefix     string
}

func (j *JSON[T]) key(k string) string {
	return j.Prefix + k
}

func (j *JSON[T]) Delete(ctx context.Context, key string) error {
	return j.Underlying.Delete(ctx, j.key(key))
}

func (j *JSON[T]) Get(ctx context.Context, key string) (T, error) {
	var result T

	data, err := j.Underlying.Get(ctx, j.key(key))
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(data, &result); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %q: %w", ErrCantDecode, key, err)
	}

	return result, nil
}

func (j *JSON[T]) Set(ctx context.Context, key string, value T, expiry time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrCantEncode, key, err)
	}

	return j.Underlying.Set(ctx, j.key(key), data, expiry)
}

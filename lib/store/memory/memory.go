// Package memory is a process-local store backend. Answers kept here are lost
// when the process exits.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TecharoHQ/maat/decaymap"
	"github.com/TecharoHQ/maat/lib/store"
)

const cleanupInterval = 5 * time.Minute

func init() {
	store.Register("memory", factory{})
}

type factory struct{}

func (factory) Build(ctx context.Context, _ json.RawMessage) (store.Interface, error) {
	return New(ctx), nil
}

func (factory) Valid(json.RawMessage) error { return nil }

type impl struct {
	answers *decaymap.Impl[string, []byte]
}

func (i *impl) Delete(_ context.Context, key string) error {
	if !i.answers.Delete(key) {
		return fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return nil
}

func (i *impl) Get(_ context.Context, key string) ([]byte, error) {
	result, ok := i.answers.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return result, nil
}

func (i *impl) Set(_ context.Context, key string, value []byte, expiry time.Duration) error {
	i.answers.Set(key, append([]byte(nil), value...), expiry)
	return nil
}

func (i *impl) cleanupThread(ctx context.Context) {
	t := time.NewTicker(cleanupInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			i.answers.Cleanup()
		}
	}
}

// New creates an in-memory store. Expired entries are swept until ctx is done.
func New(ctx context.Context) store.Interface {
	result := &impl{
		answers: decaymap.New[string, []byte](),
	}

	go result.cleanupThread(ctx)

	return result
}

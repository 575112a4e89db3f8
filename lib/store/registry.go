package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrNoBackend      = errors.New("store: no backend defined")
	ErrUnknownBackend = errors.New("store: unknown backend")
)

var (
	registry = map[string]Factory{}
	regLock  sync.RWMutex
)

// Factory builds a backend from its JSON parameters.
type Factory interface {
	Build(ctx context.Context, config json.RawMessage) (Interface, error)
	Valid(config json.RawMessage) error
}

// Register makes a backend available under name. Backends register themselves
// from init.
func Register(name string, impl Factory) {
	regLock.Lock()
	defer regLock.Unlock()

	registry[name] = impl
}

func Get(name string) (Factory, bool) {
	regLock.RLock()
	defer regLock.RUnlock()
	result, ok := registry[name]
	return result, ok
}

// Methods returns the registered backend names in sorted order.
func Methods() []string {
	regLock.RLock()
	defer regLock.RUnlock()

	result := make([]string, 0, len(registry))
	for method := range registry {
		result = append(result, method)
	}
	sort.Strings(result)
	return result
}

// Config selects a backend and its parameters.
type Config struct {
	Backend    string          `json:"backend"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

func (c Config) Valid() error {
	if c.Backend == "" {
		return ErrNoBackend
	}

	fac, ok := Get(c.Backend)
	if !ok {
		return fmt.Errorf("%w: %q (known: %v)", ErrUnknownBackend, c.Backend, Methods())
	}

	return fac.Valid(c.Parameters)
}

// Build validates c and builds the backend it names.
func Build(ctx context.Context, c Config) (Interface, error) {
	if err := c.Valid(); err != nil {
		return nil, err
	}

	fac, _ := Get(c.Backend)
	return fac.Build(ctx, c.Parameters)
}

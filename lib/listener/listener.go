// Package listener holds the pluggable resolution logic realms are configured
// with.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/TecharoHQ/maat/lib/localization"
	"github.com/TecharoHQ/maat/lib/realm"
)

var (
	ErrUnknownMethod = errors.New("listener: unknown method")
	ErrBadParameters = errors.New("listener: parameters are invalid")
)

var (
	registry = map[string]Factory{}
	regLock  sync.RWMutex
)

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

func Methods() []string {
	regLock.RLock()
	defer regLock.RUnlock()
	var result []string
	for method := range registry {
		result = append(result, method)
	}
	sort.Strings(result)
	return result
}

// BuildInput is everything a Factory may need to build a listener for one
// realm.
type BuildInput struct {
	Realm      string
	Parameters json.RawMessage
	Logger     *slog.Logger

	// In and Out are the terminal for interactive listeners.
	In  io.Reader
	Out io.Writer

	Localizer *localization.SimpleLocalizer
}

// Log returns the logger listeners should use.
func (in *BuildInput) Log() *slog.Logger {
	if in.Logger == nil {
		return slog.With("realm", in.Realm)
	}
	return in.Logger
}

// Factory builds realm listeners from their JSON parameters.
type Factory interface {
	Build(ctx context.Context, in *BuildInput) (realm.Listener, error)
	Valid(params json.RawMessage) error
}

// Build looks up method and builds a listener with it.
func Build(ctx context.Context, method string, in *BuildInput) (realm.Listener, error) {
	fac, ok := Get(method)
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownMethod, method, Methods())
	}

	if in.Logger == nil {
		in.Logger = slog.With("realm", in.Realm, "listener", method)
	}

	return fac.Build(ctx, in)
}

// Valid checks params against method.
func Valid(method string, params json.RawMessage) error {
	fac, ok := Get(method)
	if !ok {
		return fmt.Errorf("%w: %q (known: %v)", ErrUnknownMethod, method, Methods())
	}

	return fac.Valid(params)
}

// DecodeParameters unmarshals params into T. Missing parameters decode to the
// zero value.
func DecodeParameters[T any](params json.RawMessage) (T, error) {
	var result T
	if len(params) == 0 {
		return result, nil
	}

	if err := json.Unmarshal(params, &result); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrBadParameters, err)
	}

	return result, nil
}

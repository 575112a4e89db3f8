package realm

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps realm names to their Handler. It is meant to be filled once at
// configuration time and only read afterwards, but it is safe for concurrent
// use either way.
type Registry struct {
	lock     sync.RWMutex
	handlers map[string]*Handler
}

// NewRegistry creates a Registry holding hs.
func NewRegistry(hs ...*Handler) (*Registry, error) {
	result := &Registry{
		handlers: map[string]*Handler{},
	}

	for _, h := range hs {
		if err := result.Register(h); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// Register adds h to the registry. Realm names are unique.
func (r *Registry) Register(h *Handler) error {
	if h == nil || h.Name() == "" {
		return ErrEmptyRealm
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.handlers[h.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateRealm, h.Name())
	}

	r.handlers[h.Name()] = h
	return nil
}

// Get returns the handler of the named realm.
func (r *Registry) Get(name string) (*Handler, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	result, ok := r.handlers[name]
	return result, ok
}

// Realms returns the sorted names of every registered realm.
func (r *Registry) Realms() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var result []string
	for name := range r.handlers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

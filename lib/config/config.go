// Package config loads the YAML file that describes the authorization backend
// and the realms maat can answer challenges for.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/TecharoHQ/maat/lib/authreq"
	"github.com/TecharoHQ/maat/lib/listener"
	_ "github.com/TecharoHQ/maat/lib/listener/all"
	"github.com/TecharoHQ/maat/lib/store"
	_ "github.com/TecharoHQ/maat/lib/store/all"
	"k8s.io/apimachinery/pkg/util/yaml"
)

var (
	ErrNoBackendRoute    = errors.New("config: backend_route is required")
	ErrBadBackendRoute   = errors.New("config: backend_route must be an absolute http or https URL")
	ErrNegativeTimeout   = errors.New("config: default_timeout can't be negative")
	ErrRealmMustHaveName = errors.New("config.Realm: must set name")
	ErrDuplicateRealm    = errors.New("config.Realm: name is used more than once")
	ErrNoListener        = errors.New("config.Realm: must set listener")
	ErrNegativeCacheTTL  = errors.New("config.Realm: cache_ttl can't be negative")
)

// Realm binds a realm name to the listener that resolves its challenges.
type Realm struct {
	Name       string          `json:"name"`
	Listener   string          `json:"listener"`
	Parameters json.RawMessage `json:"parameters,omitempty"`

	// CacheTTL keeps submitted answers in the store for this long. Zero
	// disables caching.
	CacheTTL Duration `json:"cache_ttl,omitempty"`
}

func (r Realm) Valid() error {
	var errs []error

	if r.Name == "" {
		errs = append(errs, ErrRealmMustHaveName)
	}

	if r.CacheTTL < 0 {
		errs = append(errs, ErrNegativeCacheTTL)
	}

	if r.Listener == "" {
		errs = append(errs, ErrNoListener)
	} else if err := listener.Valid(r.Listener, r.Parameters); err != nil {
		errs = append(errs, err)
	}

	if len(errs) != 0 {
		return fmt.Errorf("config: realm %q is not valid:\n%w", r.Name, errors.Join(errs...))
	}

	return nil
}

type Config struct {
	BackendRoute   string   `json:"backend_route"`
	TenantID       string   `json:"tenant_id,omitempty"`
	RewriteDomain  string   `json:"rewrite_domain,omitempty"`
	DefaultTimeout Duration `json:"default_timeout,omitempty"`

	// Socket is a unix socket path the backend is reached through.
	Socket string `json:"socket,omitempty"`

	// Store keeps cached answers. It defaults to the memory backend.
	Store  store.Config `json:"store"`
	Realms []Realm      `json:"realms"`
}

func (c *Config) Valid() error {
	var errs []error

	if c.BackendRoute == "" {
		errs = append(errs, ErrNoBackendRoute)
	} else if u, err := url.Parse(c.BackendRoute); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: %q", ErrBadBackendRoute, c.BackendRoute))
	}

	if c.DefaultTimeout < 0 {
		errs = append(errs, ErrNegativeTimeout)
	}

	if err := c.Store.Valid(); err != nil {
		errs = append(errs, err)
	}

	seen := map[string]bool{}
	for i, r := range c.Realms {
		if err := r.Valid(); err != nil {
			errs = append(errs, fmt.Errorf("realm %d: %w", i, err))
		}

		if r.Name != "" && seen[r.Name] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateRealm, r.Name))
		}
		seen[r.Name] = true
	}

	if len(errs) != 0 {
		return fmt.Errorf("config is not valid:\n%w", errors.Join(errs...))
	}

	return nil
}

// Authreq returns the part of the configuration request managers read.
func (c *Config) Authreq() authreq.Config {
	return authreq.Config{
		BackendRoute:   c.BackendRoute,
		TenantID:       c.TenantID,
		RewriteDomain:  c.RewriteDomain,
		DefaultTimeout: c.DefaultTimeout.Std(),
	}
}

// Load parses and validates a configuration file read from fin. fname is only
// used in error messages.
func Load(fin io.Reader, fname string) (*Config, error) {
	c := &Config{
		Store: store.Config{Backend: "memory"},
	}

	if err := yaml.NewYAMLToJSONDecoder(fin).Decode(c); err != nil {
		return nil, fmt.Errorf("can't parse config YAML %s: %w", fname, err)
	}

	if err := c.Valid(); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadFile loads the configuration file at fname.
func LoadFile(fname string) (*Config, error) {
	fin, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("can't open config %s: %w", fname, err)
	}
	defer fin.Close()

	return Load(fin, fname)
}

package lib

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/TecharoHQ/maat"
	"github.com/TecharoHQ/maat/lib/config"
	"github.com/TecharoHQ/maat/lib/listener"
	"github.com/TecharoHQ/maat/lib/localization"
	"github.com/TecharoHQ/maat/lib/realm"
	"github.com/TecharoHQ/maat/lib/store"
	"github.com/TecharoHQ/maat/lib/transport"
)

type Options struct {
	Config *config.Config

	// In and Out are handed to interactive listeners.
	In  io.Reader
	Out io.Writer

	Localizer *localization.SimpleLocalizer
	UserAgent string
	Logger    *slog.Logger

	// Store overrides the store named in Config.
	Store store.Interface
}

// New builds the store, transport and realm handlers described by
// opts.Config.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Config == nil {
		return nil, ErrNoConfig
	}

	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}

	st := opts.Store
	if st == nil {
		var err error
		st, err = store.Build(ctx, opts.Config.Store)
		if err != nil {
			return nil, fmt.Errorf("can't build %s store: %w", opts.Config.Store.Backend, err)
		}
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = "maat/" + maat.Version
	}

	tr, err := transport.New(transport.Options{
		Socket:    opts.Config.Socket,
		UserAgent: ua,
	})
	if err != nil {
		return nil, err
	}

	handlers := make([]*realm.Handler, 0, len(opts.Config.Realms))
	for _, rc := range opts.Config.Realms {
		l, err := listener.Build(ctx, rc.Listener, &listener.BuildInput{
			Realm:      rc.Name,
			Parameters: rc.Parameters,
			Logger:     lg.With("realm", rc.Name, "listener", rc.Listener),
			In:         opts.In,
			Out:        opts.Out,
			Localizer:  opts.Localizer,
		})
		if err != nil {
			return nil, fmt.Errorf("can't build listener for realm %s: %w", rc.Name, err)
		}

		if ttl := rc.CacheTTL.Std(); ttl > 0 {
			l = &listener.Cached{
				Realm:  rc.Name,
				Next:   l,
				Store:  st,
				TTL:    ttl,
				Logger: lg.With("realm", rc.Name, "listener", "cached"),
			}
		}

		h, err := realm.NewHandler(rc.Name, l)
		if err != nil {
			return nil, err
		}

		handlers = append(handlers, h)
	}

	reg, err := realm.NewRegistry(handlers...)
	if err != nil {
		return nil, err
	}

	lg.Debug("client ready", "realms", reg.Realms(), "store", opts.Config.Store.Backend)

	return &Client{
		cfg:       opts.Config,
		registry:  reg,
		store:     st,
		transport: tr,
		lg:        lg,
	}, nil
}

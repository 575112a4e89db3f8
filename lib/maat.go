// Package lib wires configuration, realm listeners, answer storage and the
// HTTP transport into a Client that sends authorization requests.
package lib

import (
	"context"
	"errors"
	"log/slog"

	"github.com/TecharoHQ/maat/lib/authreq"
	"github.com/TecharoHQ/maat/lib/config"
	"github.com/TecharoHQ/maat/lib/realm"
	"github.com/TecharoHQ/maat/lib/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ErrNoConfig = errors.New("lib: no configuration given")

var requestOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "maat_request_outcomes",
	Help: "The total number of requests by how they ended",
}, []string{"outcome"})

type Client struct {
	cfg       *config.Config
	registry  *realm.Registry
	store     store.Interface
	transport authreq.Transport
	lg        *slog.Logger
}

func (c *Client) Registry() *realm.Registry { return c.registry }

func (c *Client) Store() store.Interface { return c.store }

func (c *Client) options(l authreq.ResponseListener) authreq.Options {
	return authreq.Options{
		Registry:  c.registry,
		Transport: c.transport,
		Config:    c.cfg.Authreq(),
		Listener:  l,
		Logger:    c.lg,
	}
}

// Send starts a request for path and returns its manager without waiting. l
// receives the outcome.
func (c *Client) Send(ctx context.Context, path string, ro *authreq.RequestOptions, l authreq.ResponseListener) *authreq.Manager {
	m := authreq.New(c.options(counting{l}))
	go m.SendRequest(ctx, path, ro)
	return m
}

// Do sends a request for path and waits for its outcome.
func (c *Client) Do(ctx context.Context, path string, ro *authreq.RequestOptions) (*authreq.Response, error) {
	resp, err := authreq.Do(ctx, c.options(nil), path, ro)
	switch {
	case err == nil:
		requestOutcomes.WithLabelValues("success").Inc()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		requestOutcomes.WithLabelValues("abandoned").Inc()
	default:
		requestOutcomes.WithLabelValues("failure").Inc()
	}

	c.lg.Debug("request finished", "path", path, "err", err)
	return resp, err
}

type counting struct {
	next authreq.ResponseListener
}

func (c counting) OnSuccess(resp *authreq.Response) {
	requestOutcomes.WithLabelValues("success").Inc()
	if c.next != nil {
		c.next.OnSuccess(resp)
	}
}

func (c counting) OnFailure(err error) {
	requestOutcomes.WithLabelValues("failure").Inc()
	if c.next != nil {
		c.next.OnFailure(err)
	}
}

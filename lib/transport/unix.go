package transport

import (
	"context"
	"net"
	"net/http"
)

// dialUnix makes t send every request over the unix socket at path, whatever
// host the request URL names.
func dialUnix(t *http.Transport, path string) {
	t.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", path)
	}
	t.DialTLSContext = nil
	t.RegisterProtocol("unix", unixRoundTripper{Transport: t})
}

// unixRoundTripper lets unix:///path URLs through http.Transport.
//
// https://github.com/oauth2-proxy/oauth2-proxy/blob/master/pkg/upstream/http.go#L124
type unixRoundTripper struct {
	Transport *http.Transport
}

func (t unixRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Host == "" {
		req.Host = "localhost"
	}
	req.URL.Host = req.Host // no Host in request URL otherwise
	req.URL.Scheme = "http" // avoid recursing back into this round tripper
	return t.Transport.RoundTrip(req)
}

// Package transport sends authreq requests over net/http.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/TecharoHQ/maat/lib/authreq"
	"golang.org/x/net/publicsuffix"
)

// maxBodySize caps how much of a response body is read into memory.
const maxBodySize = 8 << 20

var (
	ErrBadURL   = errors.New("transport: can't parse request URL")
	ErrBodySize = errors.New("transport: response body too large")
)

// Options configures a Client.
type Options struct {
	// Socket, when set, is the path of a unix socket every request is sent
	// over.
	Socket string

	// UserAgent is sent with every request that does not set its own.
	UserAgent string
}

// Client implements authreq.Transport. Cookies set by the backend are kept
// for the lifetime of the Client, scoped by the public suffix list.
type Client struct {
	client    *http.Client
	userAgent string
}

var _ authreq.Transport = (*Client)(nil)

func New(opts Options) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("transport: can't create cookie jar: %w", err)
	}

	t := http.DefaultTransport.(*http.Transport).Clone()

	if opts.Socket != "" {
		dialUnix(t, opts.Socket)
	}

	return &Client{
		client: &http.Client{
			Transport: t,
			Jar:       jar,
		},
		userAgent: opts.UserAgent,
	}, nil
}

// Send implements authreq.Transport. Responses with a status of 400 or more
// are returned as a *authreq.StatusError carrying the response.
func (c *Client) Send(ctx context.Context, req *authreq.Request) (*authreq.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	hreq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	client := *c.client
	if !req.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	start := time.Now()
	resp, err := client.Do(hreq)
	latency.WithLabelValues(hreq.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("transport: %s %s: %w", hreq.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("transport: can't read response body: %w", err)
	}

	if len(body) > maxBodySize {
		return nil, ErrBodySize
	}

	result := &authreq.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}

	slog.Debug("backend responded", "method", hreq.Method, "url", req.URL, "status", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &authreq.StatusError{Code: codeFor(resp.StatusCode), Response: result}
	}

	return result, nil
}

func (c *Client) build(ctx context.Context, req *authreq.Request) (*http.Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadURL, err)
	}

	if len(req.Query) != 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Form) != 0 {
		body = strings.NewReader(req.Form.Encode())
	}

	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadURL, err)
	}

	if req.Header != nil {
		hreq.Header = req.Header.Clone()
	}

	if body != nil && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if c.userAgent != "" && hreq.Header.Get("User-Agent") == "" {
		hreq.Header.Set("User-Agent", c.userAgent)
	}

	return hreq, nil
}

func codeFor(status int) authreq.ErrorCode {
	switch status {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return authreq.CodeTimeout
	default:
		return authreq.CodeServerError
	}
}

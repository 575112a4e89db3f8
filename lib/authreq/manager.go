package authreq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/TecharoHQ/maat"
	"github.com/TecharoHQ/maat/internal"
	"github.com/TecharoHQ/maat/lib/realm"
	"github.com/google/uuid"
)

// State is where a Manager is in its request lifecycle.
type State int

const (
	StateBuilding State = iota
	StateSent
	StateSucceeded
	StateRedirected
	StateChallengeWait
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateSent:
		return "sent"
	case StateSucceeded:
		return "succeeded"
	case StateRedirected:
		return "redirected"
	case StateChallengeWait:
		return "challenge_wait"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Options configures a Manager.
type Options struct {
	Registry  *realm.Registry
	Transport Transport
	Config    Config
	Listener  ResponseListener
	Logger    *slog.Logger

	// MaxAttempts caps how many times the request goes to the transport.
	// Zero means DefaultMaxAttempts.
	MaxAttempts int
}

// DefaultMaxAttempts is used when Options.MaxAttempts is not set.
const DefaultMaxAttempts = 8

// Manager owns the lifecycle of one HTTP exchange with the authorization
// backend: it sends the request, routes composite challenges to the realm
// handlers, collects their answers and replays the request once every realm
// has been satisfied.
//
// Manager implements realm.Contender. Handlers only reach it through that
// interface.
type Manager struct {
	id        string
	registry  *realm.Registry
	transport Transport
	cfg       Config
	listener  ResponseListener
	lg        *slog.Logger

	maxAttempts int

	mu       sync.Mutex
	ctx      context.Context
	state    State
	answers  *AnswerSet
	url      string
	opts     *RequestOptions
	attempts int
}

var _ realm.Contender = (*Manager)(nil)

func New(opts Options) *Manager {
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}

	listener := opts.Listener
	if listener == nil {
		listener = ListenerFuncs{}
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	id := uuid.Must(uuid.NewV7()).String()

	return &Manager{
		id:        id,
		registry:  opts.Registry,
		transport: opts.Transport,
		cfg:       opts.Config,
		listener:  listener,
		lg:        lg.With("request_id", id),

		maxAttempts: maxAttempts,
		ctx:       context.Background(),
		answers:   NewAnswerSet(),
	}
}

// ID returns the unique id used in this manager's logs.
func (m *Manager) ID() string { return m.id }

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AnswerState returns the state of realm in the current answer set.
func (m *Manager) AnswerState(realm string) AnswerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.answers.State(realm)
}

// Attempts returns how many times the request went to the transport.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// SendRequest resolves path against the configured backend and sends it.
// The outcome is delivered to the ResponseListener.
func (m *Manager) SendRequest(ctx context.Context, path string, opts *RequestOptions) {
	if path == "" {
		m.fail(&Error{Code: CodeUnableToConnect, Kind: ErrInvalidInput, Err: errors.New("path is empty")})
		return
	}

	target, err := m.resolve(path)
	if err != nil {
		m.fail(&Error{Code: CodeUnableToConnect, Kind: ErrInvalidInput, Err: err})
		return
	}

	m.send(ctx, target, opts)
}

// ResendRequest sends the last request again with the current answers.
func (m *Manager) ResendRequest() {
	m.mu.Lock()
	ctx, target, opts := m.ctx, m.url, m.opts
	m.mu.Unlock()

	requestsResent.Inc()
	m.lg.Debug("resending request", "url", target)
	m.SendRequest(ctx, target, opts)
}

// resolve turns path into an absolute URL. Absolute URLs keep their own
// scheme and host, everything else is rooted at the tenant's authorization
// endpoint.
func (m *Manager) resolve(path string) (string, error) {
	if strings.HasPrefix(path, "http") && strings.Contains(path, ":") {
		u, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("can't parse %q: %w", path, err)
		}

		if u.Scheme == "" || u.Host == "" {
			return "", fmt.Errorf("%q is not an absolute URL", path)
		}

		root := &url.URL{Scheme: u.Scheme, Host: u.Host}
		return root.JoinPath(u.Path).String(), nil
	}

	if m.cfg.BackendRoute == "" {
		return "", errors.New("no backend route configured")
	}

	root := strings.TrimSuffix(m.cfg.BackendRoute, "/") + "/" + maat.AuthServerName
	result, err := url.JoinPath(root, maat.AuthPath, m.cfg.TenantID, path)
	if err != nil {
		return "", fmt.Errorf("can't build URL for %q: %w", path, err)
	}

	return result, nil
}

func (m *Manager) send(ctx context.Context, target string, opts *RequestOptions) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	m.mu.Lock()
	if st := m.state; st.terminal() {
		m.mu.Unlock()
		m.lg.Debug("request already finished, not sending", "state", st)
		return
	}
	if m.attempts >= m.maxAttempts {
		attempts := m.attempts
		m.mu.Unlock()
		m.fail(&Error{
			Code: CodeUnableToConnect,
			Kind: ErrRemoteAuthFailure,
			Err:  fmt.Errorf("%w: gave up after %d", ErrTooManyAttempts, attempts),
		})
		return
	}
	m.ctx = ctx
	m.url = target
	m.opts = opts
	m.state = StateSent
	m.attempts++
	attempt := m.attempts
	auth, hasAuth, err := m.answers.AuthorizationHeader()
	m.mu.Unlock()

	if err != nil {
		m.fail(&Error{Code: CodeUnableToConnect, Kind: ErrInvalidInput, Err: err})
		return
	}

	req := m.buildRequest(target, opts)
	if hasAuth {
		req.Header.Set("Authorization", auth)
		m.lg.Debug("added authorization header", "credential", internal.FastHash(auth))
	}

	requestsSent.WithLabelValues(req.Method).Inc()
	m.lg.Debug("sending request", "method", req.Method, "url", target, "attempt", attempt)

	resp, err := m.transport.Send(ctx, req)
	if err != nil {
		m.onFailure(ctx, err)
		return
	}

	m.onSuccess(ctx, resp)
}

func (m *Manager) buildRequest(target string, opts *RequestOptions) *Request {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = m.cfg.DefaultTimeout
	}
	if timeout == 0 {
		timeout = maat.DefaultTimeout
	}

	req := &Request{
		Method:          method,
		URL:             target,
		Timeout:         timeout,
		Header:          http.Header{},
		FollowRedirects: false,
	}

	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	if m.cfg.RewriteDomain != "" {
		req.Header.Set(maat.RewriteDomainHeader, m.cfg.RewriteDomain)
	}

	params := url.Values{}
	for k, v := range opts.Parameters {
		params.Set(k, v)
	}

	if method == http.MethodGet {
		req.Query = params
	} else {
		req.Form = params
	}

	return req
}

func (m *Manager) onSuccess(ctx context.Context, resp *Response) {
	if resp.IsRedirect() {
		m.setState(StateRedirected)
		m.processRedirect(ctx, resp)
		return
	}

	challenges := challengesOf(resp)
	if challenges == nil {
		m.succeed(resp)
		return
	}

	m.startHandleChallenges(ctx, challenges, resp)
}

func (m *Manager) onFailure(ctx context.Context, err error) {
	var se *StatusError
	if errors.As(err, &se) && isCompositeChallenge(se.Response) {
		if challenges := challengesOf(se.Response); challenges != nil {
			m.startHandleChallenges(ctx, challenges, se.Response)
			return
		}
	}

	result := &Error{Code: CodeUnableToConnect, Kind: ErrTransport, Err: err}
	if se != nil {
		result.Code = se.Code
		result.Response = se.Response
	}
	if errors.Is(err, context.DeadlineExceeded) {
		result.Code = CodeTimeout
	}

	m.fail(result)
}

func (m *Manager) processRedirect(ctx context.Context, resp *Response) {
	locations := resp.Headers("Location")
	if len(locations) == 0 {
		m.succeed(resp)
		return
	}

	result, found, err := ParseRedirectResult(locations[0])
	if err != nil {
		m.fail(&Error{Code: CodeUnableToConnect, Kind: ErrBadRedirectResult, Response: resp, Err: err})
		return
	}

	if !found {
		m.succeed(resp)
		return
	}

	if result.Failures != nil {
		m.notifyRealms(ctx, result.Failures, (*realm.Handler).HandleFailure)

		info, _ := json.Marshal(result.Failures)
		m.fail(&Error{Code: CodeUnableToConnect, Kind: ErrRemoteAuthFailure, Response: resp, Info: info})
		return
	}

	m.notifyRealms(ctx, result.Successes, (*realm.Handler).HandleSuccess)
	m.succeed(resp)
}

// notifyRealms hands each realm's payload to its handler. Realms without a
// handler are logged and skipped.
func (m *Manager) notifyRealms(ctx context.Context, payloads map[string]json.RawMessage, fn func(*realm.Handler, context.Context, json.RawMessage)) {
	for _, name := range sortedRealms(payloads) {
		h, ok := m.registry.Get(name)
		if !ok {
			m.lg.Error("challenge handler for realm is not found", "realm", name)
			continue
		}

		fn(h, ctx, payloads[name])
	}
}

func (m *Manager) startHandleChallenges(ctx context.Context, challenges map[string]json.RawMessage, resp *Response) {
	realms := sortedRealms(challenges)

	if !isCompositeChallenge(resp) {
		m.lg.Debug("challenges do not require answers", "status", resp.StatusCode, "realms", realms)
		m.notifyRealms(ctx, challenges, (*realm.Handler).NotifySuccess)
		m.succeed(resp)
		return
	}

	handlers := make([]*realm.Handler, len(realms))
	for i, name := range realms {
		h, ok := m.registry.Get(name)
		if !ok {
			m.fail(&Error{
				Code:     CodeUnableToConnect,
				Kind:     ErrRealmHandlerMissing,
				Response: resp,
				Err:      fmt.Errorf("realm %q", name),
			})
			return
		}
		handlers[i] = h
	}

	m.mu.Lock()
	if m.state.terminal() {
		m.mu.Unlock()
		return
	}
	m.answers.Expect(realms...)
	m.state = StateChallengeWait
	m.mu.Unlock()

	m.lg.Debug("handling composite challenge", "realms", realms)

	for i, h := range handlers {
		if m.State().terminal() {
			m.lg.Debug("request finished while dispatching challenges", "skipped", realms[i:])
			return
		}
		h.HandleChallenge(ctx, m, challenges[realms[i]])
	}
}

// SubmitAnswer implements realm.Contender.
func (m *Manager) SubmitAnswer(realm string, answer json.RawMessage) {
	m.update(realm, func(a *AnswerSet) bool { return a.Fill(realm, answer) })
}

// RemoveExpectedAnswer implements realm.Contender.
func (m *Manager) RemoveExpectedAnswer(realm string) {
	m.update(realm, func(a *AnswerSet) bool { return a.Clear(realm) })
}

// RequestFailed implements realm.Contender.
func (m *Manager) RequestFailed(info json.RawMessage) {
	m.fail(&Error{Code: CodeUnableToConnect, Kind: ErrRemoteAuthFailure, Info: info})
}

// update applies fn to the answer set and resends once the set is complete.
// Only the caller that moves the manager out of StateChallengeWait resends,
// so racing realms trigger exactly one resend.
func (m *Manager) update(realm string, fn func(*AnswerSet) bool) {
	m.mu.Lock()
	if m.state.terminal() {
		m.mu.Unlock()
		m.lg.Debug("request already finished, dropping realm update", "realm", realm)
		return
	}

	if !fn(m.answers) {
		m.lg.Debug("realm was already resolved for this attempt", "realm", realm, "answer_state", m.answers.State(realm))
	}

	resend := m.state == StateChallengeWait && m.answers.Complete()
	if resend {
		m.state = StateSent
	}
	m.mu.Unlock()

	if resend {
		m.ResendRequest()
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.terminal() {
		m.state = s
	}
}

func (m *Manager) succeed(resp *Response) {
	m.mu.Lock()
	if m.state.terminal() {
		m.mu.Unlock()
		return
	}
	m.state = StateSucceeded
	m.mu.Unlock()

	m.lg.Debug("request succeeded", "status", resp.StatusCode)
	m.listener.OnSuccess(resp)
}

func (m *Manager) fail(err *Error) {
	m.mu.Lock()
	if m.state.terminal() {
		m.mu.Unlock()
		m.lg.Debug("request already finished, dropping failure", "err", err)
		return
	}
	m.state = StateFailed
	m.mu.Unlock()

	requestFailures.WithLabelValues(kindLabel(err)).Inc()
	m.lg.Error("request failed", "err", err, "code", err.Code)
	m.listener.OnFailure(err)
}

func sortedRealms(m map[string]json.RawMessage) []string {
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

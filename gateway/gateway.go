// Package gateway wraps every call to the admin backend.
//
// Before sending, the gateway attaches the current bearer token, a request
// id and, on state-changing methods, the anti-forgery token. After
// receiving, it classifies the outcome with Classify and then runs the
// side effects for that kind exactly once:
//
//	connectivity  notify network error
//	401           expire the session, notify, redirect to login
//	403           notify not authorized
//	422           notify backend message or invalid parameters
//	other non-2xx notify backend message or server error
//
// Only 401 changes the session. Responses that arrive after the session
// they were sent under has been reset or replaced are discarded as
// KindStale with no side effects, which also makes a burst of concurrent
// 401s tear the session down once. A discarded 401 still matches
// ErrAuthorizationExpired.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/jmcleod/adconsole/internal/uuid"
	"github.com/jmcleod/adconsole/notify"
	"github.com/jmcleod/adconsole/session"
)

const (
	// MaxResponseBytes bounds how much of a response body is read.
	MaxResponseBytes = 32 << 20

	HeaderRequestID = "X-Request-ID"
	HeaderCSRF      = "X-CSRF-Token"

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "adconsole"
)

// Teardown ends a session whose credential the backend rejected. Expire
// reports whether the call performed the reset.
type Teardown interface {
	Expire(ctx context.Context, generation uint64) bool
}

// Navigator forces navigation to the login entry point.
type Navigator interface {
	RedirectToLogin(ctx context.Context) error
}

// Request describes one backend call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded when non-nil.
	Body   any
	Header http.Header
	// Form, when set, is sent as multipart/form-data instead of Body.
	Form *Multipart
	// Silent suppresses operator notifications; classification, teardown
	// and redirect still happen.
	Silent bool
}

// Response is a successful backend reply.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	RequestID string
}

// Gateway sends requests to the backend on behalf of the current session.
type Gateway struct {
	base      *url.URL
	reader    session.Reader
	client    *http.Client
	notifier  notify.Notifier
	navigator Navigator
	logger    *slog.Logger
	metrics   *metricsCollector
	userAgent string

	mu       sync.RWMutex
	teardown Teardown
}

// Option configures a Gateway.
type Option func(*gatewayOptions)

type gatewayOptions struct {
	client        *http.Client
	timeout       time.Duration
	notifier      notify.Notifier
	navigator     Navigator
	logger        *slog.Logger
	meterProvider metric.MeterProvider
	userAgent     string
}

// WithHTTPClient replaces the HTTP client. Its Timeout is left alone.
func WithHTTPClient(c *http.Client) Option {
	return func(o *gatewayOptions) { o.client = c }
}

// WithTimeout sets the per-call timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(o *gatewayOptions) { o.timeout = d }
}

// WithNotifier sets where failures are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(o *gatewayOptions) { o.notifier = n }
}

// WithNavigator sets the target of the forced login redirect.
func WithNavigator(n Navigator) Option {
	return func(o *gatewayOptions) { o.navigator = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *gatewayOptions) { o.logger = l }
}

// WithMeterProvider sets the meter provider; the global one is used
// otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *gatewayOptions) { o.meterProvider = mp }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *gatewayOptions) { o.userAgent = ua }
}

// New returns a gateway for the backend rooted at baseURL that reads the
// session from reader.
func New(baseURL string, reader session.Reader, opts ...Option) (*Gateway, error) {
	if reader == nil {
		return nil, errors.New("gateway: nil session reader")
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway: parsing base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("gateway: base url %q must be http or https", baseURL)
	}

	o := gatewayOptions{
		timeout:   defaultTimeout,
		notifier:  notify.Discard{},
		logger:    slog.Default(),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: o.timeout}
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	m, err := newMetricsCollector(o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	return &Gateway{
		base:      base,
		reader:    reader,
		client:    o.client,
		notifier:  o.notifier,
		navigator: o.navigator,
		logger:    o.logger.With("component", "gateway"),
		metrics:   m,
		userAgent: o.userAgent,
	}, nil
}

// BindTeardown installs the session teardown. The controller is built on
// top of the gateway, so it is bound after construction.
func (g *Gateway) BindTeardown(t Teardown) {
	g.mu.Lock()
	g.teardown = t
	g.mu.Unlock()
}

func (g *Gateway) currentTeardown() Teardown {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.teardown
}

// BaseURL returns the backend root.
func (g *Gateway) BaseURL() string {
	return g.base.String()
}

// Do sends req. Every failure is an *Error; it has already been reported to
// the operator unless req.Silent is set or the kind is KindStale. A
// cancelled ctx is returned as-is without notification.
func (g *Gateway) Do(ctx context.Context, req *Request) (*Response, error) {
	snap := g.reader.Snapshot()
	requestID := uuid.New()

	httpReq, err := g.build(ctx, req, snap, requestID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	status, header, body, transportErr := g.send(httpReq)
	elapsed := time.Since(start)
	if transportErr != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	kind := Classify(status, transportErr)
	if g.reader.Snapshot().Generation != snap.Generation &&
		(kind != KindAuthorizationExpired || snap.BearerToken == "") {
		kind = KindStale
	}

	log := g.logger.With(
		slog.String("method", httpReq.Method),
		slog.String("path", req.Path),
		slog.Int("status", status),
		slog.String("request_id", requestID),
		slog.Duration("duration", elapsed),
	)

	if kind == "" {
		g.metrics.record(ctx, httpReq.Method, kind, elapsed)
		log.Debug("backend call")
		return &Response{Status: status, Header: header, Body: body, RequestID: requestID}, nil
	}

	gwErr := &Error{
		Kind:      kind,
		Method:    httpReq.Method,
		Path:      req.Path,
		Status:    status,
		RequestID: requestID,
		Err:       transportErr,
	}
	if transportErr == nil {
		gwErr.Message, gwErr.Details = parseErrorBody(body)
	}

	if kind == KindAuthorizationExpired {
		gwErr.Kind = g.expire(ctx, snap)
	}
	g.metrics.record(ctx, httpReq.Method, gwErr.Kind, elapsed)

	if gwErr.Kind == KindStale {
		log.Debug("discarded stale response", slog.Uint64("generation", snap.Generation))
		return nil, gwErr
	}
	log.Warn("backend call failed", slog.String("kind", string(gwErr.Kind)), slog.String("error", gwErr.Error()))
	if !req.Silent {
		g.report(gwErr, snap.BearerToken != "")
	}
	if gwErr.Kind == KindAuthorizationExpired && snap.BearerToken != "" && g.navigator != nil {
		if err := g.navigator.RedirectToLogin(ctx); err != nil {
			log.Warn("redirect to login failed", slog.String("error", err.Error()))
		}
	}
	return nil, gwErr
}

// expire runs the 401 teardown. A call sent without a bearer token has no
// session to end. When another call already ended this generation the
// response is stale.
func (g *Gateway) expire(ctx context.Context, snap session.Snapshot) ErrorKind {
	if snap.BearerToken == "" {
		return KindAuthorizationExpired
	}
	t := g.currentTeardown()
	if t == nil {
		return KindAuthorizationExpired
	}
	if !t.Expire(ctx, snap.Generation) {
		return KindStale
	}
	return KindAuthorizationExpired
}

func (g *Gateway) report(e *Error, hadBearer bool) {
	switch e.Kind {
	case KindConnectivity:
		notify.Error(g.notifier, notify.MsgNetworkError, "")
	case KindAuthorizationExpired:
		if !hadBearer {
			notify.Error(g.notifier, notify.MsgNotLoggedIn, "")
			return
		}
		notify.Error(g.notifier, notify.MsgSessionExpired, "")
	case KindAuthorizationDenied:
		notify.Error(g.notifier, notify.MsgNotAuthorized, "")
	case KindValidation:
		notify.Error(g.notifier, notify.MsgInvalidParameters, e.Message)
	case KindServer:
		notify.Error(g.notifier, notify.MsgServerError, e.Message)
	}
}

func (g *Gateway) build(ctx context.Context, req *Request, snap session.Snapshot, requestID string) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	u := g.resolve(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Form != nil:
		buf, ct, err := req.Form.encode()
		if err != nil {
			return nil, fmt.Errorf("gateway: encoding form: %w", err)
		}
		body, contentType = buf, ct
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("gateway: encoding body: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("gateway: building request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", g.userAgent)
	httpReq.Header.Set(HeaderRequestID, requestID)
	if snap.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+snap.BearerToken)
	}
	if snap.AntiForgeryToken != "" && isStateChanging(method) {
		httpReq.Header.Set(HeaderCSRF, snap.AntiForgeryToken)
	}
	return httpReq, nil
}

func (g *Gateway) resolve(path string) *url.URL {
	u := *g.base
	u.Path = g.base.Path + "/" + strings.TrimLeft(path, "/")
	return &u
}

func (g *Gateway) send(req *http.Request) (int, http.Header, []byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// DecodeJSON decodes a response body into out. A nil out or an empty body
// is a no-op.
func DecodeJSON(resp *Response, out any) error {
	if out == nil || resp == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decoding response %s: %w", resp.RequestID, err)
	}
	return nil
}

func (g *Gateway) call(ctx context.Context, req *Request, out any) error {
	resp, err := g.Do(ctx, req)
	if err != nil {
		return err
	}
	return DecodeJSON(resp, out)
}

// Get fetches path and decodes the reply into out.
func (g *Gateway) Get(ctx context.Context, path string, query url.Values, out any) error {
	return g.call(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post sends body to path and decodes the reply into out.
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.call(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put sends body to path and decodes the reply into out.
func (g *Gateway) Put(ctx context.Context, path string, body, out any) error {
	return g.call(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete removes path and decodes the reply into out.
func (g *Gateway) Delete(ctx context.Context, path string, out any) error {
	return g.call(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

// Upload posts form as multipart/form-data and decodes the reply into out.
func (g *Gateway) Upload(ctx context.Context, path string, form *Multipart, out any) error {
	return g.call(ctx, &Request{Method: http.MethodPost, Path: path, Form: form}, out)
}

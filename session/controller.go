package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmcleod/adconsole/notify"
)

// Backend is the credential-exchange collaborator, normally the REST auth
// endpoints.
type Backend interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Verify(ctx context.Context) (*Identity, error)
	AntiForgeryToken(ctx context.Context) (string, error)
}

// Controller drives the session state machine. It is the only writer of its
// Store.
type Controller struct {
	store    *Store
	backend  Backend
	notifier notify.Notifier
	logger   *slog.Logger
	audit    *auditLogger
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets where login failures are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithLogger sets the logger; audit entries go to a component=audit child.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController returns a controller that owns store.
func NewController(store *Store, backend Backend, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		backend:  backend,
		notifier: notify.Discard{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.audit = newAuditLogger(c.logger)
	return c
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Snapshot {
	return c.store.Snapshot()
}

// State returns the current state.
func (c *Controller) State() State {
	return c.store.State()
}

// Store returns the read side of the owned store.
func (c *Controller) Store() Reader {
	return c.store
}

// Login exchanges credentials for a session. Failures are reported through
// the notifier with the backend's message when it sent one and returned to
// the caller. A login that completes after the session was replaced or reset
// returns ErrStaleSession and changes nothing.
func (c *Controller) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		notify.Error(c.notifier, notify.MsgCredentialsRequired, "")
		return nil, ErrCredentialsRequired
	}

	gen := c.store.begin()
	defer c.store.settle()
	res, err := c.backend.Login(ctx, username, password)
	if err == nil && (res == nil || res.AccessToken == "" || res.User == nil) {
		err = ErrMalformedLogin
	}
	if errors.Is(err, ErrStaleSession) {
		c.discarded(ctx, "login", gen)
		return nil, ErrStaleSession
	}
	if err != nil {
		c.audit.log(ctx, AuditLoginFailure,
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		notify.Error(c.notifier, notify.MsgLoginFailed, backendMessage(err))
		return nil, fmt.Errorf("login: %w", err)
	}

	newGen, err := c.store.writeAt(gen,
		setBearer(res.AccessToken),
		setAntiForgery(res.CSRFToken),
		setIdentity(res.User),
		setPermissions(derivePermissions(res)),
		setState(StateAuthenticated),
		nextGeneration(),
	)
	if errors.Is(err, ErrStaleSession) {
		c.audit.logIdentity(ctx, AuditStaleDiscarded, res.User,
			slog.String("operation", "login"),
			slog.Uint64("issued_generation", gen),
			slog.Uint64("current_generation", newGen),
		)
		return nil, ErrStaleSession
	}
	if err != nil {
		c.audit.logIdentity(ctx, AuditPersistFailure, res.User, slog.String("error", err.Error()))
	}
	c.audit.logIdentity(ctx, AuditLoginSuccess, res.User, slog.Uint64("generation", newGen))
	return res, nil
}

// Verify re-checks the bearer token with the backend and refreshes the
// identity. Permissions and the anti-forgery token are left alone. Any
// failure other than a cancelled ctx logs the session out.
func (c *Controller) Verify(ctx context.Context) (*Identity, error) {
	snap := c.store.Snapshot()
	if snap.BearerToken == "" {
		return nil, ErrNotAuthenticated
	}
	id, err := c.backend.Verify(ctx)
	if err == nil && id == nil {
		err = errors.New("verify response missing user")
	}
	if errors.Is(err, ErrStaleSession) {
		c.discarded(ctx, "verify", snap.Generation)
		return nil, ErrStaleSession
	}
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil, err
	}
	if err != nil {
		c.audit.logIdentity(ctx, AuditVerifyFailure, snap.Identity, slog.String("error", err.Error()))
		c.resetAt(ctx, snap.Generation, StateAnonymous, AuditLogout)
		return nil, fmt.Errorf("verify: %w", err)
	}
	if _, err := c.store.writeAt(snap.Generation, setIdentity(id)); err != nil {
		c.discarded(ctx, "verify", snap.Generation)
		return nil, err
	}
	c.audit.logIdentity(ctx, AuditVerifySuccess, id)
	return id.clone(), nil
}

// RefreshAntiForgeryToken fetches a new anti-forgery token. Failures leave
// the session untouched.
func (c *Controller) RefreshAntiForgeryToken(ctx context.Context) (string, error) {
	snap := c.store.Snapshot()
	if snap.BearerToken == "" {
		return "", ErrNotAuthenticated
	}
	token, err := c.backend.AntiForgeryToken(ctx)
	if err != nil {
		return "", fmt.Errorf("refreshing anti-forgery token: %w", err)
	}
	if _, err := c.store.writeAt(snap.Generation, setAntiForgery(token)); err != nil {
		c.discarded(ctx, "csrf", snap.Generation)
		return "", err
	}
	c.audit.logIdentity(ctx, AuditCSRFRefreshed, snap.Identity)
	return token, nil
}

// Logout resets the session and removes the persisted token. It always
// succeeds; a slot failure is logged.
func (c *Controller) Logout(ctx context.Context) {
	id := c.store.Snapshot().Identity
	if err := c.store.write(resetChanges(StateAnonymous)...); err != nil {
		c.audit.logIdentity(ctx, AuditPersistFailure, id, slog.String("error", err.Error()))
	}
	c.audit.logIdentity(ctx, AuditLogout, id)
}

// Expire tears the session down after the backend rejected the credential
// of generation. It reports whether this call performed the reset; calls for
// an older generation are ignored so a burst of rejections resets once.
func (c *Controller) Expire(ctx context.Context, generation uint64) bool {
	return c.resetAt(ctx, generation, StateExpired, AuditSessionExpired)
}

func (c *Controller) resetAt(ctx context.Context, generation uint64, st State, event AuditEvent) bool {
	id := c.store.Snapshot().Identity
	_, err := c.store.writeAt(generation, resetChanges(st)...)
	if errors.Is(err, ErrStaleSession) {
		return false
	}
	if err != nil {
		c.audit.logIdentity(ctx, AuditPersistFailure, id, slog.String("error", err.Error()))
	}
	c.audit.logIdentity(ctx, event, id, slog.Uint64("generation", generation))
	return true
}

func (c *Controller) discarded(ctx context.Context, op string, generation uint64) {
	c.audit.log(ctx, AuditStaleDiscarded,
		slog.String("operation", op),
		slog.Uint64("issued_generation", generation),
		slog.Uint64("current_generation", c.store.Generation()),
	)
}

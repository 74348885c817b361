package session

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent identifies a session lifecycle event.
type AuditEvent string

const (
	AuditLoginSuccess   AuditEvent = "login_success"
	AuditLoginFailure   AuditEvent = "login_failure"
	AuditVerifySuccess  AuditEvent = "verify_success"
	AuditVerifyFailure  AuditEvent = "verify_failure"
	AuditCSRFRefreshed  AuditEvent = "csrf_refreshed"
	AuditLogout         AuditEvent = "logout"
	AuditSessionExpired AuditEvent = "session_expired"
	AuditStaleDiscarded AuditEvent = "stale_response_discarded"
	AuditPersistFailure AuditEvent = "token_persist_failure"
)

// auditLogger wraps slog.Logger for session audit entries. Tokens are never
// passed to it.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{logger: logger.With("component", "audit")}
}

func (al *auditLogger) log(ctx context.Context, event AuditEvent, attrs ...slog.Attr) {
	level := slog.LevelInfo
	switch event {
	case AuditStaleDiscarded:
		level = slog.LevelDebug
	case AuditPersistFailure:
		level = slog.LevelWarn
	}
	base := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	al.logger.LogAttrs(ctx, level, "audit", append(base, attrs...)...)
}

// logIdentity is a convenience for events about a known user.
func (al *auditLogger) logIdentity(ctx context.Context, event AuditEvent, id *Identity, extra ...slog.Attr) {
	attrs := make([]slog.Attr, 0, len(extra)+2)
	if id != nil {
		attrs = append(attrs, slog.Int64("user_id", id.ID), slog.String("username", id.Username))
	}
	al.log(ctx, event, append(attrs, extra...)...)
}

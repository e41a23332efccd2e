// Package audit records security-relevant events (logins, logouts, token
// renewals, denied requests) to the audit_logs table. Writes are best-effort
// and never fail the request that produced them.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"ecomconsole/backend/internal/audit/domain"
	auditrepo "ecomconsole/backend/internal/audit/repository"
)

// Actions recorded by the auth and session code paths.
const (
	ActionLogin          = "login"
	ActionLoginFailure   = "login_failure"
	ActionLogout         = "logout"
	ActionLogoutAll      = "logout_all"
	ActionTokenRefreshed = "token_refreshed"
	ActionTokenExtended  = "token_extended"
	ActionAccessDenied   = "access_denied"
)

type contextKey struct{}

var clientIPKey contextKey

// ContextWithClientIP stores the client IP for later audit writes. The router
// sets it once per request.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the client IP stored on the context, or "unknown".
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID int64, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository. The client IP is
// read from the request context via ClientIP.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns an AuditLogger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID int64, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ClientIP(ctx),
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

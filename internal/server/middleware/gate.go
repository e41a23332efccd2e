package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"ecomconsole/backend/internal/audit"
	"ecomconsole/backend/internal/permission"
	"ecomconsole/backend/internal/telemetry"
)

// denyMsg is the client-facing body of a 403; the console frontend shows it verbatim.
const denyMsg = "您没有访问此资源的权限"

type denyBody struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Gate is the per-request authorization decision. It expects Authenticate to
// have run; it reads claims from the request context and writes nothing there.
// Instances are stateless and shared across requests.
type Gate struct {
	adminRoles map[string]struct{}
	anonymous  func(*http.Request) bool
	emitter    telemetry.Emitter
	auditor    audit.AuditLogger
}

// NewGate returns a Gate. adminRoleIDs is the injected set of role ids that
// bypass permission checks. anonymous reports whether an endpoint is public;
// nil means no endpoint is. emitter and auditor may be nil.
func NewGate(adminRoleIDs []string, anonymous func(*http.Request) bool, emitter telemetry.Emitter, auditor audit.AuditLogger) *Gate {
	admin := make(map[string]struct{}, len(adminRoleIDs))
	for _, id := range adminRoleIDs {
		admin[id] = struct{}{}
	}
	if anonymous == nil {
		anonymous = func(*http.Request) bool { return false }
	}
	return &Gate{adminRoles: admin, anonymous: anonymous, emitter: emitter, auditor: auditor}
}

// Middleware applies the gate: denied requests get 403 and stop; allowed and
// degraded requests continue down the pipeline.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := g.Decide(r)
		switch decision.Outcome {
		case OutcomeDenied:
			g.emitDecision(r, telemetry.EventAuthzDenied, decision)
			g.auditDenial(r, decision)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(denyBody{Code: http.StatusForbidden, Msg: denyMsg})
		case OutcomeDegraded:
			// Fail-open: a gate failure must not lock operators out. The
			// degraded outcome is logged and emitted so it stays visible.
			log.Printf("authz: degraded decision for %s %s: %v", r.Method, r.URL.Path, decision.Cause)
			g.emitDecision(r, telemetry.EventAuthzDegraded, decision)
			next.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// Decide runs the decision pipeline for the request. It never panics; any
// internal failure becomes a Degraded decision.
func (g *Gate) Decide(r *http.Request) (decision Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			decision = Degraded(fmt.Errorf("authorization gate panic: %v", rec))
		}
	}()

	if g.anonymous(r) {
		return Allowed()
	}
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		// Unauthenticated: allow here, authentication enforcement is upstream.
		return Allowed()
	}
	for _, role := range claims.Roles {
		if _, ok := g.adminRoles[role]; ok {
			return Allowed()
		}
	}
	if claims.MenuPerms == "" || claims.MenuHash == "" {
		return Denied(ReasonConfigurationMissing)
	}
	raw := permission.Decompress(claims.MenuPerms)
	if raw == "" {
		return Denied(ReasonPayloadCorrupt)
	}
	var payload permission.Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload.MenuPermissions == nil {
		return Denied(ReasonPayloadCorrupt)
	}
	if permission.HashPermissions(payload.MenuPermissions) != claims.MenuHash {
		return Denied(ReasonPayloadCorrupt)
	}
	if !permission.Match(payload.MenuPermissions, r.URL.Path, r.Method) {
		return Denied(ReasonNoMatch)
	}
	return Allowed()
}

func (g *Gate) auditDenial(r *http.Request, decision Decision) {
	if g.auditor == nil {
		return
	}
	var userID int64
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		userID = claims.UserID()
	}
	meta := fmt.Sprintf(`{"path":%q,"method":%q,"reason":%q}`, r.URL.Path, r.Method, decision.Reason)
	g.auditor.LogEvent(r.Context(), userID, audit.ActionAccessDenied, "route", meta)
}

func (g *Gate) emitDecision(r *http.Request, eventType string, decision Decision) {
	if g.emitter == nil {
		return
	}
	var userID, sessionID string
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		userID = claims.Subject
		sessionID = claims.SessionID
	}
	meta, _ := json.Marshal(map[string]string{
		"path":     r.URL.Path,
		"method":   r.Method,
		"decision": decision.String(),
	})
	emitAsync(g.emitter, &telemetry.Event{
		UserID:    userID,
		SessionID: sessionID,
		EventType: eventType,
		Source:    "authorization_gate",
		Metadata:  meta,
	})
}

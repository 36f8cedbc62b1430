// Package auth authenticates API callers with bearer JWTs. Partners and
// platform admins hold separate roles; the middleware stores the caller in
// the request context and the Require* wrappers enforce the role.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/diewo77/go-partners/httpx"
	"github.com/diewo77/go-partners/internal/logger"
	"go.uber.org/zap"
)

type ctxKey string

const (
	claimsCtxKey    = ctxKey("claims")
	partnerIDCtxKey = ctxKey("partnerID")
	adminIDCtxKey   = ctxKey("adminID")
)

// Verifier reports whether the subject of a valid token may still act, for
// example because the partner account is still ACTIVE.
type Verifier func(ctx context.Context, id uint) bool

type Option func(*Authenticator)

func WithRevoker(r Revoker) Option { return func(a *Authenticator) { a.revoker = r } }

func WithPartnerVerifier(v Verifier) Option { return func(a *Authenticator) { a.partnerOK = v } }

func WithAdminVerifier(v Verifier) Option { return func(a *Authenticator) { a.adminOK = v } }

type Authenticator struct {
	issuer    *Issuer
	revoker   Revoker
	partnerOK Verifier
	adminOK   Verifier
}

func NewAuthenticator(issuer *Issuer, opts ...Option) *Authenticator {
	a := &Authenticator{issuer: issuer}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Authenticator) Issuer() *Issuer { return a.issuer }

// Revoke invalidates the token behind claims. Without a revoker it is a no-op
// and tokens stay valid until they expire.
func (a *Authenticator) Revoke(ctx context.Context, c *Claims) error {
	if a.revoker == nil || c == nil || c.ExpiresAt == nil {
		return nil
	}
	return a.revoker.Revoke(ctx, c.ID, c.ExpiresAt.Time)
}

// WithPartnerID stores partner id in context.
func WithPartnerID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, partnerIDCtxKey, id)
}

// PartnerIDFromContext extracts the authenticated partner id.
func PartnerIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(partnerIDCtxKey).(uint)
	return id, ok && id != 0
}

func WithAdminID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, adminIDCtxKey, id)
}

func AdminIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(adminIDCtxKey).(uint)
	return id, ok && id != 0
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*Claims)
	return c, ok
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Middleware attaches the caller to the request context when a valid,
// unrevoked bearer token is present. It never rejects by itself.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := a.issuer.Parse(raw)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if a.revoker != nil {
			revoked, err := a.revoker.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				// Fail closed when the revocation list is unreachable.
				logger.FromContext(r.Context()).Warn("revocation check failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if revoked {
				next.ServeHTTP(w, r)
				return
			}
		}
		ctx := context.WithValue(r.Context(), claimsCtxKey, claims)
		switch claims.Role {
		case RolePartner:
			ctx = WithPartnerID(ctx, claims.SubjectID)
		case RoleAdmin:
			ctx = WithAdminID(ctx, claims.SubjectID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter) {
	httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
}

// RequirePartner returns 401 unless the caller is an active partner.
func (a *Authenticator) RequirePartner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := PartnerIDFromContext(r.Context())
		if !ok || (a.partnerOK != nil && !a.partnerOK(r.Context(), id)) {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin returns 401 unless the caller is a platform admin.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := AdminIDFromContext(r.Context())
		if !ok || (a.adminOK != nil && !a.adminOK(r.Context(), id)) {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

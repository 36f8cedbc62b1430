package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIssuer() *Issuer { return NewIssuer("test-secret", "go-partners", time.Hour) }

func TestIssueAndParse(t *testing.T) {
	iss := newIssuer()
	raw, claims, err := iss.Issue(RolePartner, 42)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := iss.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.SubjectID != 42 || got.Role != RolePartner || got.ID != claims.ID {
		t.Fatalf("unexpected claims %+v", got)
	}
}

func TestParseRejectsForeignAndExpired(t *testing.T) {
	iss := newIssuer()
	other := NewIssuer("other-secret", "go-partners", time.Hour)
	raw, _, _ := other.Issue(RoleAdmin, 1)
	if _, err := iss.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for foreign signature got %v", err)
	}

	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, _ = iss.Issue(RolePartner, 1)
	iss.now = time.Now
	if _, err := iss.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for expired token got %v", err)
	}
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequirePartner(t *testing.T) {
	a := NewAuthenticator(newIssuer(), WithPartnerVerifier(func(_ context.Context, id uint) bool { return id != 7 }))
	var seen uint
	h := a.Middleware(a.RequirePartner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PartnerIDFromContext(r.Context())
	})))

	if rr := serve(h, ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", rr.Code)
	}
	partnerTok, _, _ := a.Issuer().Issue(RolePartner, 3)
	if rr := serve(h, partnerTok); rr.Code != http.StatusOK || seen != 3 {
		t.Fatalf("expected 200 for partner 3 got %d (seen %d)", rr.Code, seen)
	}
	adminTok, _, _ := a.Issuer().Issue(RoleAdmin, 3)
	if rr := serve(h, adminTok); rr.Code != http.StatusUnauthorized {
		t.Fatalf("admin token must not reach partner routes, got %d", rr.Code)
	}
	inactive, _, _ := a.Issuer().Issue(RolePartner, 7)
	if rr := serve(h, inactive); rr.Code != http.StatusUnauthorized {
		t.Fatalf("inactive partner must be refused, got %d", rr.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	a := NewAuthenticator(newIssuer())
	h := a.Middleware(a.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	partnerTok, _, _ := a.Issuer().Issue(RolePartner, 1)
	if rr := serve(h, partnerTok); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for partner got %d", rr.Code)
	}
	adminTok, _, _ := a.Issuer().Issue(RoleAdmin, 1)
	if rr := serve(h, adminTok); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", rr.Code)
	}
}

func TestRevokedTokenIsRefused(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	a := NewAuthenticator(newIssuer(), WithRevoker(NewRedisRevoker(rdb)))
	h := a.Middleware(a.RequirePartner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	tok, claims, _ := a.Issuer().Issue(RolePartner, 5)
	if rr := serve(h, tok); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 before logout got %d", rr.Code)
	}
	if err := a.Revoke(context.Background(), claims); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if rr := serve(h, tok); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout got %d", rr.Code)
	}
	if ttl := mr.TTL("partners:revoked:" + claims.ID); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("revocation should expire with the token, ttl=%s", ttl)
	}
}

func TestRevocationStoreDownFailsClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	a := NewAuthenticator(newIssuer(), WithRevoker(NewRedisRevoker(rdb)))
	h := a.Middleware(a.RequirePartner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	tok, _, _ := a.Issuer().Issue(RolePartner, 5)
	mr.Close()
	if rr := serve(h, tok); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when revocation store is down got %d", rr.Code)
	}
}

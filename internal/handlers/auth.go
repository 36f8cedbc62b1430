package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/go-partners/auth"
	"github.com/diewo77/go-partners/httpx"
	"github.com/diewo77/go-partners/internal/errs"
	"github.com/diewo77/go-partners/internal/logger"
	"github.com/diewo77/go-partners/internal/metrics"
	"github.com/diewo77/go-partners/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	partners *services.PartnerService
	auth     *auth.Authenticator
}

func NewAuthHandler(partners *services.PartnerService, a *auth.Authenticator) *AuthHandler {
	return &AuthHandler{partners: partners, auth: a}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      auth.Role `json:"role"`
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, role auth.Role, id uint, name string) {
	token, claims, err := h.auth.Issuer().Issue(role, id)
	if err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Role:      role,
		ID:        id,
		Name:      name,
	})
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, role auth.Role, err error) {
	metrics.RecordLogin(string(role), false)
	if errors.Is(err, errs.ErrUnauthorized) {
		logger.FromContext(r.Context()).Info("login refused", zap.String("role", string(role)), zap.Error(err))
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	httpx.Error(w, r, err, false)
}

// PartnerLogin: POST /auth/partner/login
func (h *AuthHandler) PartnerLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	p, err := h.partners.AuthenticatePartner(r.Context(), req.Email, req.Password)
	if err != nil {
		h.loginFailed(w, r, auth.RolePartner, err)
		return
	}
	metrics.RecordLogin(string(auth.RolePartner), true)
	h.issue(w, r, auth.RolePartner, p.ID, p.CompanyName)
}

// AdminLogin: POST /auth/admin/login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	a, err := h.partners.AuthenticateAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.loginFailed(w, r, auth.RoleAdmin, err)
		return
	}
	metrics.RecordLogin(string(auth.RoleAdmin), true)
	h.issue(w, r, auth.RoleAdmin, a.ID, a.Name)
}

// Logout: POST /auth/logout. Revokes the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err := h.auth.Revoke(r.Context(), claims); err != nil {
		httpx.Error(w, r, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

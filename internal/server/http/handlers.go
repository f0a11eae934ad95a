package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	auth     *services.AuthService
	sessions *services.SessionDirectory
	cookies  CookieConfig
	log      logging.Logger
}

func NewAuthHandler(a *services.AuthService, s *services.SessionDirectory, c CookieConfig, log logging.Logger) *AuthHandler {
	return &AuthHandler{auth: a, sessions: s, cookies: c, log: log.With("module", "http")}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type sessionsResponse struct {
	Sessions []models.SessionSummary `json:"sessions"`
}

type revokedResponse struct {
	Revoked int64 `json:"revoked"`
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v) == nil
}

// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(r, &req) {
		writeFailure(w, http.StatusBadRequest, MsgInvalidBody, nil)
		return
	}

	res, err := h.auth.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	}, sessionMetadata(r))
	if err != nil {
		h.fail(w, r, "register failed", err)
		return
	}

	h.cookies.set(w, res.RefreshToken)
	writeSuccess(w, http.StatusCreated, MsgRegisterSuccess, authResponse{User: res.User, AccessToken: res.AccessToken})
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(r, &req) {
		writeFailure(w, http.StatusBadRequest, MsgInvalidBody, nil)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeFailure(w, http.StatusBadRequest, MsgValidationFailed, map[string]any{
			"errors": []string{"email and password are required"},
		})
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password, sessionMetadata(r))
	if err != nil {
		h.fail(w, r, "login failed", err)
		return
	}

	h.cookies.set(w, res.RefreshToken)
	writeSuccess(w, http.StatusOK, MsgLoginSuccess, authResponse{User: res.User, AccessToken: res.AccessToken})
}

// GET|POST /auth/refresh
//
// Any failure clears the refresh cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.auth.Refresh(r.Context(), presentedRefreshToken(r), sessionMetadata(r))
	if err != nil {
		h.cookies.clear(w)
		h.fail(w, r, "refresh failed", err)
		return
	}

	h.cookies.set(w, res.RefreshToken)
	writeSuccess(w, http.StatusOK, MsgRefreshSuccess, refreshResponse{AccessToken: res.AccessToken})
}

// GET|POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.auth.Logout(r.Context(), presentedRefreshToken(r))
	h.cookies.clear(w)
	if err != nil {
		h.fail(w, r, "logout failed", err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgLogoutSuccess, nil)
}

// POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	if err := h.auth.LogoutAll(r.Context(), claims.UserID); err != nil {
		h.fail(w, r, "logout-all failed", err)
		return
	}
	h.cookies.clear(w)
	writeSuccess(w, http.StatusOK, MsgLogoutAllSuccess, nil)
}

// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	user, err := h.auth.Profile(r.Context(), claims.UserID)
	if err != nil {
		h.fail(w, r, "profile failed", err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgProfileFetched, user)
}

// GET /auth/sessions
func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	h.listSessions(w, r, claims.UserID)
}

// DELETE /auth/sessions/{family}
//
// The response is the same whether or not the family belonged to the caller.
func (h *AuthHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	if _, err := h.sessions.RevokeSession(r.Context(), claims.UserID, chi.URLParam(r, "family")); err != nil {
		h.fail(w, r, "revoke session failed", err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgSessionRevoked, nil)
}

// GET /auth/admin/users/{userId}/sessions
func (h *AuthHandler) AdminListSessions(w http.ResponseWriter, r *http.Request) {
	h.listSessions(w, r, chi.URLParam(r, "userId"))
}

// DELETE /auth/admin/users/{userId}/sessions
func (h *AuthHandler) AdminRevokeAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.sessions.RevokeAll(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, r, "admin revoke failed", err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgLogoutAllSuccess, revokedResponse{Revoked: n})
}

func (h *AuthHandler) listSessions(w http.ResponseWriter, r *http.Request, userID string) {
	sessions, err := h.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "list sessions failed", err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgSessionsFetched, sessionsResponse{Sessions: sessions})
}

// fail logs store failures at ERROR and client-side rejections at DEBUG,
// then renders err.
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, _ := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), msg, "error", err)
	} else if !common.IsRefreshFailure(err) {
		h.log.Debug(r.Context(), msg, "error", err)
	}
	writeError(w, err)
}

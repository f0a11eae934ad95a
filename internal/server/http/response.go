// Package http is the public JSON API of the auth service: chi routes,
// handlers, refresh cookie handling and middleware.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/server/services"
)

// Messages shown to clients.
const (
	MsgRegisterSuccess  = "User registered successfully"
	MsgLoginSuccess     = "Login successful"
	MsgRefreshSuccess   = "Token refreshed successfully"
	MsgLogoutSuccess    = "Logout successful"
	MsgLogoutAllSuccess = "Logged out from all devices successfully"
	MsgProfileFetched   = "Profile fetched successfully"
	MsgSessionsFetched  = "Sessions fetched successfully"
	MsgSessionRevoked   = "Session revoked successfully"
	MsgInvalidCreds     = "Invalid email or password"
	MsgTokenRequired    = "Authentication token required"
	MsgTokenInvalid     = "Invalid or expired token"
	MsgForbidden        = "Forbidden - Insufficient permissions"
	MsgInvalidRefresh   = "Invalid refresh token"
	MsgRefreshExpired   = "Refresh token expired"
	MsgReuseDetected    = "Token reuse detected. All sessions have been invalidated."
	MsgValidationFailed = "Validation error"
	MsgAlreadyExists    = "User already exists"
	MsgNotFound         = "Resource not found"
	MsgRateLimited      = "Too many requests, please try again later"
	MsgInvalidBody      = "Invalid request body"
	MsgInternal         = "Something went wrong"
	MsgServiceReady     = "Service is ready"
	MsgServiceAlive     = "Service is alive"
	MsgServiceNotReady  = "Service is not ready"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   success,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, true, message, data)
}

func writeFailure(w http.ResponseWriter, status int, message string, details any) {
	writeJSON(w, status, false, message, details)
}

// statusFor maps a service error onto an HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, MsgInvalidCreds
	case errors.Is(err, common.ErrTokenReuseDetected):
		return http.StatusUnauthorized, MsgReuseDetected
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, MsgRefreshExpired
	case errors.Is(err, common.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, MsgInvalidRefresh
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, MsgTokenInvalid
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, MsgTokenRequired
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, MsgForbidden
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, MsgValidationFailed
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, MsgAlreadyExists
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, common.ErrorRateLimited):
		return http.StatusTooManyRequests, MsgRateLimited
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

// writeError renders err. Validation problems are returned as details.
func writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)

	var ve *services.ValidationError
	if errors.As(err, &ve) {
		writeFailure(w, status, msg, map[string]any{"errors": ve.Problems})
		return
	}
	writeFailure(w, status, msg, nil)
}

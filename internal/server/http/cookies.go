package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
)

// RefreshCookiePath scopes the refresh cookie to the auth routes.
const RefreshCookiePath = "/auth"

const maxBodyBytes = 1 << 20

// CookieConfig controls the refresh token cookie attributes.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

func (c CookieConfig) set(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    value,
		Path:     RefreshCookiePath,
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    "",
		Path:     RefreshCookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

type refreshTokenBody struct {
	RefreshToken string `json:"refreshToken"`
}

// presentedRefreshToken reads the refresh cookie, falling back to a JSON
// body {"refreshToken": "..."}. It returns "" when neither is present.
func presentedRefreshToken(r *http.Request) string {
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if r.Body == nil {
		return ""
	}

	var body refreshTokenBody
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return body.RefreshToken
}

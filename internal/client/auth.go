// Package client talks to a running blogauth server: it signs in and
// refreshes over the HTTP API and manages sessions over gRPC.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
)

// ErrNoRefreshCookie is returned when a successful response carried no
// refresh token cookie.
var ErrNoRefreshCookie = errors.New("no refresh token cookie in response")

// TokenPair is an access token together with the refresh token that renews it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// APIError is a failure envelope returned by the HTTP API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type tokenData struct {
	AccessToken string `json:"accessToken"`
}

// HTTPAuthClient calls the /auth endpoints of the HTTP API.
type HTTPAuthClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPAuthClient(baseURL string, hc *http.Client) *HTTPAuthClient {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPAuthClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Login signs in with email and password.
func (c *HTTPAuthClient) Login(ctx context.Context, email, password string) (TokenPair, error) {
	return c.post(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

// Refresh rotates refreshToken. The old value must not be used again.
func (c *HTTPAuthClient) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	return c.post(ctx, "/auth/refresh", map[string]string{"refreshToken": refreshToken})
}

func (c *HTTPAuthClient) post(ctx context.Context, path string, body any) (TokenPair, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return TokenPair{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return TokenPair{}, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return TokenPair{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		return TokenPair{}, &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	var data tokenData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return TokenPair{}, fmt.Errorf("decode data: %w", err)
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == common.RefreshTokenCookieName && ck.Value != "" {
			return TokenPair{AccessToken: data.AccessToken, RefreshToken: ck.Value}, nil
		}
	}
	return TokenPair{}, ErrNoRefreshCookie
}

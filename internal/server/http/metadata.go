package http

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/blogauth/internal/server/auth"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// ClaimsFrom returns the verified access token claims stored by
// Authenticate.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return c, ok
}

func withClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, c)
}

func sessionMetadata(r *http.Request) models.SessionMetadata {
	return models.SessionMetadata{
		IPAddress: displayAddr(r),
		UserAgent: r.UserAgent(),
	}
}

package common

import "time"

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound admin calls.
const AccessTokenHeaderName = "access_token"

// RefreshTokenCookieName is the cookie holding the opaque refresh token.
const RefreshTokenCookieName = "refresh_token"

const (
	// RefreshTokenBytes is the entropy of a refresh token value before hex encoding.
	RefreshTokenBytes = 40
	// FamilyBytes is the entropy of a freshly generated family id.
	FamilyBytes = 16
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

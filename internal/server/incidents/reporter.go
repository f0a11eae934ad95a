// Package incidents archives refresh token reuse detections for later audit.
package incidents

import (
	"context"
	"time"
)

// Incident describes one reuse detection. The token value itself is never
// recorded.
type Incident struct {
	Family     string    `json:"family"`
	UserID     string    `json:"userId"`
	TokenID    string    `json:"tokenId"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	Revoked    int64     `json:"revoked"`
	DetectedAt time.Time `json:"detectedAt"`
}

// Reporter stores an Incident. Implementations must be safe for
// concurrent use.
type Reporter interface {
	Report(ctx context.Context, in Incident) error
}

// NopReporter drops every incident.
type NopReporter struct{}

func (NopReporter) Report(context.Context, Incident) error { return nil }

package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		start       *Config
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-g", ":6000", "-b", "memory", "-d", "db", "-m", "mongodb://m",
				"-s", "secret", "-t", "1", "-r", "3", "-i", "5", "-l", "redis:6379",
			},
			start: &Config{},
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:9090",
				EndpointAddrGRPC:             ":6000",
				StoreBackend:                 "memory",
				DatabaseDSN:                  "db",
				MongoURI:                     "mongodb://m",
				SecretKey:                    "secret",
				AccessTokenValidityDuration:  1 * time.Minute,
				RefreshTokenValidityDuration: 3 * time.Minute,
				CleanupInterval:              5 * time.Minute,
				RedisAddr:                    "redis:6379",
			},
		},
		{
			name:     "unset duration flags keep sub-minute values",
			args:     []string{"cmd", "-s", "k"},
			start:    &Config{AccessTokenValidityDuration: 30 * time.Second},
			expected: &Config{SecretKey: "k", AccessTokenValidityDuration: 30 * time.Second},
		},
		{
			name:        "non-numeric minutes",
			args:        []string{"cmd", "-t", "soon"},
			start:       &Config{},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := tt.start

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func Test_parseEnv(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("dotenv file values", func(t *testing.T) {
		clearEnv(t)
		path := writeEnvFile(t, "JWT_SECRET=from-file\nREFRESH_TOKEN_TTL=7d\nACCESS_TOKEN_TTL=90s\nCOOKIE_SECURE=false\nRATE_LIMIT_PER_MINUTE=3\nADMIN_EMAIL=admin@example.com\nTRUSTED_PROXIES=10.0.0.0/8,192.0.2.1\n")
		os.Args = []string{"testbin", "-env", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "from-file", cfg.SecretKey)
		assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 90*time.Second, cfg.AccessTokenValidityDuration)
		assert.False(t, cfg.CookieSecure)
		assert.Equal(t, 3, cfg.RateLimitPerMinute)
		assert.Equal(t, "admin@example.com", cfg.AdminEmail)
		assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.TrustedProxies)
	})

	t.Run("process environment wins over file", func(t *testing.T) {
		clearEnv(t)
		path := writeEnvFile(t, "JWT_SECRET=from-file\nDATABASE_URL=postgres://file\n")
		t.Setenv("JWT_SECRET", "from-env")
		os.Args = []string{"testbin", "-env", path}

		cfg := &Config{}
		parseEnv(cfg)

		assert.Equal(t, "from-env", cfg.SecretKey)
		assert.Equal(t, "postgres://file", cfg.DatabaseDSN)
	})

	t.Run("missing dotenv file is ignored", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STORE_BACKEND", "memory")
		os.Args = []string{"testbin", "-env", filepath.Join(t.TempDir(), "absent.env")}

		cfg := &Config{}
		require.NotPanics(t, func() { parseEnv(cfg) })
		assert.Equal(t, BackendMemory, cfg.StoreBackend)
	})

	t.Run("bad duration panics", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CLEANUP_INTERVAL", "whenever")
		os.Args = []string{"testbin", "-env", filepath.Join(t.TempDir(), "absent.env")}

		require.Panics(t, func() { parseEnv(&Config{}) })
	})
}

func Test_applyEnv_IgnoresUnknownKeys(t *testing.T) {
	cfg := &Config{SecretKey: "keep"}
	applyEnv(cfg, func(key string) (string, bool) {
		if key == "SOMETHING_ELSE" {
			return "x", true
		}
		return "", false
	})
	assert.Equal(t, "keep", cfg.SecretKey)
}

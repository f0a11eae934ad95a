package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/blogauth/internal/flagx"
	"github.com/dmitrijs2005/blogauth/internal/timex"
	"github.com/joho/godotenv"
)

// parseEnv overlays values from the dotenv file (-env, default ".env") and
// the process environment. Process variables win over the file; empty values
// are ignored. A missing dotenv file is fine, a malformed one panics.
func parseEnv(config *Config) {
	fileVars := map[string]string{}
	if path := flagx.EnvFileFlags(); path != "" {
		vars, err := godotenv.Read(path)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			panic(err)
		}
	}

	applyEnv(config, func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok && v != ""
	})
}

func applyEnv(config *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *timex.Duration) bool {
		v, ok := lookup(key)
		if !ok {
			return false
		}
		d, err := timex.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		dst.Duration = d
		return true
	}

	str("HTTP_ADDR", &config.EndpointAddrHTTP)
	str("GRPC_ADDR", &config.EndpointAddrGRPC)
	str("STORE_BACKEND", &config.StoreBackend)
	str("DATABASE_URL", &config.DatabaseDSN)
	str("MONGO_URI", &config.MongoURI)
	str("MONGO_DATABASE", &config.MongoDatabase)
	str("JWT_SECRET", &config.SecretKey)
	str("REDIS_ADDR", &config.RedisAddr)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("LOG_LEVEL", &config.LogLevel)
	str("ADMIN_EMAIL", &config.AdminEmail)
	str("ADMIN_PASSWORD", &config.AdminPassword)

	var d timex.Duration
	if dur("ACCESS_TOKEN_TTL", &d) {
		config.AccessTokenValidityDuration = d.Duration
	}
	if dur("REFRESH_TOKEN_TTL", &d) {
		config.RefreshTokenValidityDuration = d.Duration
	}
	if dur("CLEANUP_INTERVAL", &d) {
		config.CleanupInterval = d.Duration
	}

	if v, ok := lookup("COOKIE_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.CookieSecure = b
	}
	if v, ok := lookup("TRUSTED_PROXIES"); ok {
		config.TrustedProxies = strings.Split(v, ",")
	}
	if v, ok := lookup("RATE_LIMIT_PER_MINUTE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.RateLimitPerMinute = n
	}
}

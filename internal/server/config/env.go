package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv.
const (
	envAddr          = "GOPHAUTH_ADDR"
	envDatabaseDSN   = "GOPHAUTH_DATABASE_DSN"
	envSecretKey     = "GOPHAUTH_SECRET_KEY"
	envSessionTTL    = "GOPHAUTH_SESSION_TTL"
	envBackend       = "GOPHAUTH_SESSION_BACKEND"
	envRedisAddr     = "GOPHAUTH_REDIS_ADDR"
	envRedisPassword = "GOPHAUTH_REDIS_PASSWORD"
	envRedisDB       = "GOPHAUTH_REDIS_DB"
	envCookieName    = "GOPHAUTH_COOKIE_NAME"
	envCookieSecure  = "GOPHAUTH_COOKIE_SECURE"
	envBcryptCost    = "GOPHAUTH_BCRYPT_COST"
	envLogLevel      = "GOPHAUTH_LOG_LEVEL"
)

// parseEnv overlays GOPHAUTH_* environment variables onto config.
//
// A dotenv file is loaded first: the path given by -env, or ".env" in the
// working directory when present. Variables already set in the process
// environment win over the file. Unparsable numeric or boolean values are
// ignored and the previous value is kept.
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	setString(&config.EndpointAddrHTTP, envAddr)
	setString(&config.DatabaseDSN, envDatabaseDSN)
	setString(&config.SecretKey, envSecretKey)
	setString(&config.SessionBackend, envBackend)
	setString(&config.RedisAddr, envRedisAddr)
	setString(&config.RedisPassword, envRedisPassword)
	setString(&config.CookieName, envCookieName)
	setString(&config.LogLevel, envLogLevel)

	if v, ok := os.LookupEnv(envSessionTTL); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.SessionTTL = d
		}
	}
	if v, ok := os.LookupEnv(envRedisDB); ok {
		if n, err := strconv.Atoi(v); err == nil {
			config.RedisDB = n
		}
	}
	if v, ok := os.LookupEnv(envBcryptCost); ok {
		if n, err := strconv.Atoi(v); err == nil {
			config.BcryptCost = n
		}
	}
	if v, ok := os.LookupEnv(envCookieSecure); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			config.CookieSecure = b
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

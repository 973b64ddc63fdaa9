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
		expected    *Config
		initial     Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret", "-t", "15",
				"-b", "redis", "-r", "redis:6379", "-n", "auth", "-secure", "-l", "debug",
			},
			expected: &Config{
				EndpointAddrHTTP: "127.0.0.1:9090",
				DatabaseDSN:      "db",
				SecretKey:        "secret",
				SessionTTL:       15 * time.Minute,
				SessionBackend:   "redis",
				RedisAddr:        "redis:6379",
				CookieName:       "auth",
				CookieSecure:     true,
				LogLevel:         "debug",
			},
		},
		{
			name:     "config and env flags are skipped",
			args:     []string{"cmd", "-c", "x.json", "-env", ".env", "-b", "memory"},
			initial:  Config{SessionTTL: 90 * time.Second},
			expected: &Config{SessionBackend: "memory", SessionTTL: 90 * time.Second},
		},
		{
			name:        "bad ttl panics",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := tt.initial

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(&config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(&config) })
			assert.Empty(t, cmp.Diff(&config, tt.expected))
		})
	}
}

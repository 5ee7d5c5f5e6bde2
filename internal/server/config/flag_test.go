package config

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-g", ":6000", "-m", "/login-gw", "-d", "db", "-r", "redis:6379",
			"-l", "debug", "-base", "https://example.com/", "-local", "-twitter", "-facebook",
		}, expected: &Config{
			HTTPAddr:         "127.0.0.1:9090",
			GRPCAddr:         ":6000",
			MountPath:        "/login-gw",
			LogLevel:         "debug",
			DirectoryBackend: "postgres",
			DatabaseDSN:      "db",
			SessionBackend:   "redis",
			RedisAddr:        "redis:6379",
			BaseURL:          "https://example.com/",
			AllowLocal:       true,
			AllowTwitter:     true,
			AllowFacebook:    true,
		}},
		{name: "foreign flags ignored", args: []string{"cmd", "-test.v", "-x", "1", "-local"},
			expected: &Config{AllowLocal: true}},
		{name: "bad bool value", args: []string{"cmd", "-local=maybe"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}
			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}

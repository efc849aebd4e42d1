package server

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var configVars = []string{
	"SERVER_ADDR", "ALLOWED_ORIGINS", "MAX_MESSAGE_SIZE", "SEND_BUFFER_SIZE",
	"RATE_LIMIT_BURST", "RATE_LIMIT_INTERVAL", "PING_INTERVAL", "PONG_WAIT",
	"WRITE_WAIT", "SHUTDOWN_TIMEOUT", "WELCOME_MESSAGE", "DEFAULT_USERNAME",
	"LOG_LEVEL", "LOG_FILE", "LOG_CONSOLE",
}

// clearConfigEnv unsets every config variable for the duration of the test.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configVars {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()

	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Overrides(t *testing.T) {
	req := require.New(t)
	clearConfigEnv(t)
	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, https://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "4096")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_INTERVAL", "2s")
	t.Setenv("WELCOME_MESSAGE", "hi there")
	t.Setenv("DEFAULT_USERNAME", "guest")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()

	req.NoError(err)
	req.Equal(":9000", cfg.Addr)
	req.Equal([]string{"http://a.example", "https://b.example"}, cfg.Origins())
	req.Equal(4096, cfg.MaxMessageSize)
	req.Equal(5, cfg.RateLimitBurst)
	req.Equal(2*time.Second, cfg.RateLimitInterval)
	req.Equal("hi there", cfg.WelcomeMessage)
	req.Equal("guest", cfg.DefaultUsername)
	req.Equal("debug", cfg.LogLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"zero send buffer":       {"SEND_BUFFER_SIZE": "0"},
		"negative message size":  {"MAX_MESSAGE_SIZE": "-1"},
		"pong shorter than ping": {"PING_INTERVAL": "30s", "PONG_WAIT": "10s"},
		"unparsable duration":    {"WRITE_WAIT": "soon"},
		"unknown log level":      {"LOG_LEVEL": "loud"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range vars {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestSanitizeConfig_Fills_Zero_Values(t *testing.T) {
	req := require.New(t)

	cfg := sanitizeConfig(Config{PingInterval: 9 * time.Second})

	req.Equal(":3001", cfg.Addr)
	req.Equal(256, cfg.SendBufferSize)
	req.Equal(10*time.Second, cfg.PongWait)
	req.Equal(10*time.Second, cfg.WriteWait)
	req.Equal(time.Second, cfg.RateLimitInterval)
	req.Equal(5*time.Second, cfg.ShutdownTimeout)
}

func TestParseOrigins(t *testing.T) {
	req := require.New(t)
	req.Nil(parseOrigins(""))
	req.Nil(parseOrigins("   "))
	req.Equal([]string{"*"}, parseOrigins("*"))
	req.Equal([]string{"http://a", "", "http://b"}, parseOrigins("http://a, ,http://b"))
}

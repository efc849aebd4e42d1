// Package server provides configuration helpers that define runtime defaults,
// validation, and keepalive parameters for the relay service.
package server

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Tyrowin/broadcast-relay/internal/relay"
)

// Config holds the server configuration. Every field can be set from the
// environment; see LoadConfig.
type Config struct {
	Addr           string `env:"SERVER_ADDR,default=:3001" validate:"required"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=*"`
	// MaxMessageSize caps inbound frames in bytes. Zero means no limit.
	MaxMessageSize int `env:"MAX_MESSAGE_SIZE,default=0" validate:"gte=0"`
	SendBufferSize int `env:"SEND_BUFFER_SIZE,default=256" validate:"gt=0"`

	// RateLimitBurst messages are accepted per RateLimitInterval and
	// connection. Zero disables rate limiting.
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST,default=0" validate:"gte=0"`
	RateLimitInterval time.Duration `env:"RATE_LIMIT_INTERVAL,default=1s" validate:"gt=0"`

	PingInterval    time.Duration `env:"PING_INTERVAL,default=54s" validate:"gt=0"`
	PongWait        time.Duration `env:"PONG_WAIT,default=60s" validate:"gtfield=PingInterval"`
	WriteWait       time.Duration `env:"WRITE_WAIT,default=10s" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`

	WelcomeMessage  string `env:"WELCOME_MESSAGE,default=Welcome to the chatroom!" validate:"required"`
	DefaultUsername string `env:"DEFAULT_USERNAME,default=Anonymous" validate:"required"`

	LogLevel   string `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	LogFile    string `env:"LOG_FILE"`
	LogConsole bool   `env:"LOG_CONSOLE,default=true"`
}

// DefaultConfig returns the configuration used when no variables are set.
func DefaultConfig() Config {
	return Config{
		Addr:              ":3001",
		AllowedOrigins:    "*",
		SendBufferSize:    256,
		RateLimitInterval: time.Second,
		PingInterval:      54 * time.Second,
		PongWait:          60 * time.Second,
		WriteWait:         10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		WelcomeMessage:    relay.DefaultWelcomeMessage,
		DefaultUsername:   relay.DefaultUsername,
		LogLevel:          "info",
		LogConsole:        true,
	}
}

// LoadConfig reads an optional .env file, then the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Origins splits AllowedOrigins on commas.
func (c Config) Origins() []string {
	return parseOrigins(c.AllowedOrigins)
}

// sanitizeConfig fills zero values with defaults so that a partially built
// Config is still usable.
func sanitizeConfig(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.MaxMessageSize < 0 {
		cfg.MaxMessageSize = 0
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = def.SendBufferSize
	}
	if cfg.RateLimitInterval <= 0 {
		cfg.RateLimitInterval = def.RateLimitInterval
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongWait <= cfg.PingInterval {
		cfg.PongWait = cfg.PingInterval * 10 / 9
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	return cfg
}

func parseOrigins(origins string) []string {
	if strings.TrimSpace(origins) == "" {
		return nil
	}
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

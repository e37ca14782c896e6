// Package config loads server settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/hexsettlers/internal/game"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	TLSCert        string   `yaml:"tls_cert"`
	TLSKey         string   `yaml:"tls_key"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console or json

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	TurnTimeout   time.Duration `yaml:"turn_timeout"`
	BotDelay      time.Duration `yaml:"bot_delay"`
	BotChainDelay time.Duration `yaml:"bot_chain_delay"`
	LogSize       int           `yaml:"log_size"`
	ChatSize      int           `yaml:"chat_size"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`

	// inbound websocket messages per second, per connection
	MessageRate  float64 `yaml:"message_rate"`
	MessageBurst int     `yaml:"message_burst"`

	ArchiveDir string `yaml:"archive_dir"`

	Room game.Settings `yaml:"room"`
}

const devSecret = "dev-insecure-secret"

func Default() Config {
	return Config{
		Addr:          ":8080",
		LogLevel:      "info",
		LogFormat:     "console",
		JWTSecret:     devSecret,
		TokenTTL:      24 * time.Hour,
		TurnTimeout:   90 * time.Second,
		BotDelay:      1500 * time.Millisecond,
		BotChainDelay: 500 * time.Millisecond,
		LogSize:       15,
		ChatSize:      50,
		IdleTimeout:   2 * time.Minute,
		MessageRate:   10,
		MessageBurst:  20,
		Room:          game.DefaultSettings(),
	}
}

// Load reads path over the defaults (an empty path skips the file), then
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	cfg.Room = cfg.Room.Normalize(game.DefaultSettings())
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		cfg.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		cfg.LogFormat = v
	}
	if v, ok := lookup("JWT_SECRET"); ok && v != "" {
		cfg.JWTSecret = v
	}
	if v, ok := lookup("ARCHIVE_DIR"); ok {
		cfg.ArchiveDir = v
	}
	if v, ok := lookup("TLS_CERT"); ok {
		cfg.TLSCert = v
	}
	if v, ok := lookup("TLS_KEY"); ok {
		cfg.TLSKey = v
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	if v, ok := lookup("TURN_SECONDS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TURN_SECONDS: %v", ErrInvalid, err)
		}
		cfg.TurnTimeout = time.Duration(n) * time.Second
	}
	return nil
}

func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: empty addr", ErrInvalid)
	case c.JWTSecret == "":
		return fmt.Errorf("%w: empty jwt secret", ErrInvalid)
	case c.TurnTimeout <= 0:
		return fmt.Errorf("%w: turn timeout must be positive", ErrInvalid)
	case c.IdleTimeout <= 0:
		return fmt.Errorf("%w: idle timeout must be positive", ErrInvalid)
	case c.BotDelay < 0 || c.BotChainDelay < 0:
		return fmt.Errorf("%w: negative bot delay", ErrInvalid)
	case c.LogSize <= 0 || c.ChatSize <= 0:
		return fmt.Errorf("%w: log and chat sizes must be positive", ErrInvalid)
	case c.MessageRate <= 0 || c.MessageBurst <= 0:
		return fmt.Errorf("%w: message rate must be positive", ErrInvalid)
	case (c.TLSCert == "") != (c.TLSKey == ""):
		return fmt.Errorf("%w: tls cert and key must be set together", ErrInvalid)
	case c.LogFormat != "console" && c.LogFormat != "json":
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

// InsecureSecret reports whether the compiled-in development secret is in
// use.
func (c Config) InsecureSecret() bool { return c.JWTSecret == devSecret }

// Package config loads and normalises the runtime configuration for the Coze client.
// Values come from an optional YAML file and are then overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is the public Coze API endpoint.
	DefaultBaseURL = "https://api.coze.com"

	// DefaultPollIntervalMS is the delay between chat status polls.
	DefaultPollIntervalMS = 1000

	// DefaultPollTimeoutMS bounds the total wall time spent polling one chat.
	DefaultPollTimeoutMS = 60000

	// DefaultMaxStreamEvents caps the number of SSE frames read from one stream.
	DefaultMaxStreamEvents = 500

	// DefaultRequestTimeoutSeconds applies to non-streaming HTTP calls.
	DefaultRequestTimeoutSeconds = 30

	// DefaultJWTTTLSeconds is the lifetime requested for JWT-exchanged access tokens.
	DefaultJWTTTLSeconds = 900
)

// Config is the root configuration document.
type Config struct {
	// BaseURL is the API origin, without trailing slash.
	BaseURL string `yaml:"base-url"`

	// ProxyURL routes all outbound traffic through an http(s) or socks5 proxy.
	ProxyURL string `yaml:"proxy-url"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`

	// LoggingToFile writes logs to a rotating file instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file"`

	// RequestTimeoutSeconds bounds non-streaming calls. Zero disables the timeout.
	RequestTimeoutSeconds int `yaml:"request-timeout-seconds"`

	// Headers are attached to every request before per-call options.
	Headers map[string]string `yaml:"headers"`

	Auth      AuthConfig      `yaml:"auth"`
	Chat      ChatConfig      `yaml:"chat"`
	Streaming StreamingConfig `yaml:"streaming"`
}

// AuthConfig selects how bearer tokens are obtained.
// A non-empty Token wins over JWT settings.
type AuthConfig struct {
	Token string    `yaml:"token"`
	JWT   JWTConfig `yaml:"jwt"`
}

// JWTConfig describes a JWT OAuth application.
type JWTConfig struct {
	ClientID       string `yaml:"client-id"`
	KeyID          string `yaml:"key-id"`
	PrivateKey     string `yaml:"private-key"`
	PrivateKeyFile string `yaml:"private-key-file"`
	// Audience defaults to the host of BaseURL.
	Audience   string `yaml:"audience"`
	TTLSeconds int    `yaml:"ttl-seconds"`
}

// Enabled reports whether enough JWT settings are present to issue tokens.
func (j JWTConfig) Enabled() bool {
	return j.ClientID != "" && j.KeyID != "" && (j.PrivateKey != "" || j.PrivateKeyFile != "")
}

// ChatConfig holds the create-and-poll timings.
type ChatConfig struct {
	PollIntervalMS int `yaml:"poll-interval-ms"`
	PollTimeoutMS  int `yaml:"poll-timeout-ms"`
}

// PollInterval returns the poll interval as a duration.
func (c ChatConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// PollTimeout returns the poll timeout as a duration.
func (c ChatConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutMS) * time.Millisecond
}

// StreamingConfig holds SSE limits.
type StreamingConfig struct {
	MaxEvents int `yaml:"max-events"`
}

// LoadConfig reads the YAML file at path, applies environment overrides and sanitises the result.
// An empty path skips the file and yields defaults plus environment values.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.Sanitize()
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up through lookup.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if cfg == nil || lookup == nil {
		return
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}
	if v, ok := get("COZE_API_BASE"); ok {
		cfg.BaseURL = v
	}
	if v, ok := get("COZE_API_TOKEN"); ok {
		cfg.Auth.Token = v
	}
	if v, ok := get("COZE_PROXY_URL"); ok {
		cfg.ProxyURL = v
	}
	if v, ok := get("COZE_JWT_CLIENT_ID"); ok {
		cfg.Auth.JWT.ClientID = v
	}
	if v, ok := get("COZE_JWT_KEY_ID"); ok {
		cfg.Auth.JWT.KeyID = v
	}
	if v, ok := get("COZE_JWT_PRIVATE_KEY_FILE"); ok {
		cfg.Auth.JWT.PrivateKeyFile = v
	}
	if v, ok := get("COZE_DEBUG"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}
}

// Sanitize trims string fields, lower-cases header keys and fills defaults for unset numbers.
func (cfg *Config) Sanitize() {
	if cfg == nil {
		return
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.ProxyURL = strings.TrimSpace(cfg.ProxyURL)
	if cfg.RequestTimeoutSeconds < 0 {
		cfg.RequestTimeoutSeconds = 0
	} else if cfg.RequestTimeoutSeconds == 0 {
		cfg.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}

	if len(cfg.Headers) > 0 {
		headers := make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			key := strings.TrimSpace(k)
			if key == "" {
				continue
			}
			headers[key] = strings.TrimSpace(v)
		}
		cfg.Headers = headers
	}

	cfg.Auth.Token = strings.TrimSpace(cfg.Auth.Token)
	jwt := &cfg.Auth.JWT
	jwt.ClientID = strings.TrimSpace(jwt.ClientID)
	jwt.KeyID = strings.TrimSpace(jwt.KeyID)
	jwt.PrivateKeyFile = strings.TrimSpace(jwt.PrivateKeyFile)
	jwt.Audience = strings.TrimSpace(jwt.Audience)
	if jwt.TTLSeconds <= 0 {
		jwt.TTLSeconds = DefaultJWTTTLSeconds
	}

	if cfg.Chat.PollIntervalMS <= 0 {
		cfg.Chat.PollIntervalMS = DefaultPollIntervalMS
	}
	if cfg.Chat.PollTimeoutMS <= 0 {
		cfg.Chat.PollTimeoutMS = DefaultPollTimeoutMS
	}
	if cfg.Streaming.MaxEvents <= 0 {
		cfg.Streaming.MaxEvents = DefaultMaxStreamEvents
	}
}

// RequestTimeout returns the non-streaming request timeout.
func (cfg *Config) RequestTimeout() time.Duration {
	if cfg == nil || cfg.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.RequestTimeoutSeconds) * time.Second
}

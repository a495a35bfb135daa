package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultServiceName  = "topgg"
	DefaultWebhookPath  = "/dblwebhook"
	DefaultMaxBodyBytes = int64(1 << 20)
	DefaultAPIBaseURL   = "https://top.gg/api"
	DefaultAPITimeout   = 10
)

type WebhookConfig struct {
	Path         string `koanf:"path" mapstructure:"path"`
	Password     string `koanf:"password" mapstructure:"password"`
	MaxBodyBytes int64  `koanf:"max_body_bytes" mapstructure:"max_body_bytes"`
}

type APIConfig struct {
	BaseURL        string `koanf:"base_url" mapstructure:"base_url"`
	Token          string `koanf:"token" mapstructure:"token"`
	TimeoutSeconds int    `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
}

func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultAPITimeout * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	Webhook     WebhookConfig `koanf:"webhook" mapstructure:"webhook"`
	API         APIConfig     `koanf:"api" mapstructure:"api"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: DefaultServiceName,
		Webhook: WebhookConfig{
			Path:         DefaultWebhookPath,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		API: APIConfig{
			BaseURL:        DefaultAPIBaseURL,
			TimeoutSeconds: DefaultAPITimeout,
		},
	}
}

// Validate checks structural settings only. The webhook password is checked
// when a router is built so that client-only programs can omit it.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if path := strings.TrimSpace(c.Webhook.Path); path != "" && !strings.HasPrefix(path, "/") {
		return fmt.Errorf("core: webhook.path must start with /")
	}
	if c.Webhook.MaxBodyBytes < 0 {
		return fmt.Errorf("core: webhook.max_body_bytes must be positive")
	}
	if c.API.TimeoutSeconds < 0 {
		return fmt.Errorf("core: api.timeout_seconds must be positive")
	}
	if base := strings.TrimSpace(c.API.BaseURL); base != "" {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: api.base_url must be an absolute url")
		}
	}
	return nil
}

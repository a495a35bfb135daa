package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
	"gopkg.in/yaml.v3"
)

const (
	EnvWebhookPassword = "TOPGG_WEBHOOK_PASSWORD"
	EnvToken           = "TOPGG_TOKEN"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	return cloneFields(l.Values), nil
}

// YAMLConfigLoader reads a YAML document into the raw map. A missing file is
// an empty map when Optional is set.
type YAMLConfigLoader struct {
	Path     string
	Optional bool
}

func (l YAMLConfigLoader) LoadRaw(ctx context.Context) (map[string]any, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if l.Optional && os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("core: read config %q: %w", path, err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("core: parse config %q: %w", path, err)
	}
	return raw, nil
}

// EnvConfigLoader overlays secrets from the environment on top of Base.
type EnvConfigLoader struct {
	Base   RawConfigLoader
	Getenv func(string) string
}

func (l EnvConfigLoader) LoadRaw(ctx context.Context) (map[string]any, error) {
	raw := map[string]any{}
	if l.Base != nil {
		loaded, err := l.Base.LoadRaw(ctx)
		if err != nil {
			return nil, err
		}
		raw = loaded
	}
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if value := strings.TrimSpace(getenv(EnvWebhookPassword)); value != "" {
		section := nestedSection(raw, "webhook")
		section["password"] = value
	}
	if value := strings.TrimSpace(getenv(EnvToken)); value != "" {
		section := nestedSection(raw, "api")
		section["token"] = value
	}
	return raw, nil
}

func nestedSection(raw map[string]any, key string) map[string]any {
	switch typed := raw[key].(type) {
	case map[string]any:
		return typed
	case map[any]any:
		converted := make(map[string]any, len(typed))
		for k, v := range typed {
			converted[fmt.Sprint(k)] = v
		}
		raw[key] = converted
		return converted
	default:
		section := map[string]any{}
		raw[key] = section
		return section
	}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults < loaded config < runtime overrides.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	webhook := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Webhook.Path) != "" {
		webhook["path"] = cfg.Webhook.Path
	}
	if includeZero || cfg.Webhook.Password != "" {
		webhook["password"] = cfg.Webhook.Password
	}
	if includeZero || cfg.Webhook.MaxBodyBytes != 0 {
		webhook["max_body_bytes"] = cfg.Webhook.MaxBodyBytes
	}
	if len(webhook) > 0 {
		layer["webhook"] = webhook
	}

	api := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.API.BaseURL) != "" {
		api["base_url"] = cfg.API.BaseURL
	}
	if includeZero || cfg.API.Token != "" {
		api["token"] = cfg.API.Token
	}
	if includeZero || cfg.API.TimeoutSeconds != 0 {
		api["timeout_seconds"] = cfg.API.TimeoutSeconds
	}
	if len(api) > 0 {
		layer["api"] = api
	}
	return layer
}

type configLoadOptions struct {
	provider ConfigProvider
	resolver OptionsResolver
}

type ConfigOption func(*configLoadOptions)

func WithConfigProvider(provider ConfigProvider) ConfigOption {
	return func(o *configLoadOptions) {
		o.provider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) ConfigOption {
	return func(o *configLoadOptions) {
		o.resolver = resolver
	}
}

// WithConfigFile loads path as YAML with environment overrides applied.
func WithConfigFile(path string) ConfigOption {
	return func(o *configLoadOptions) {
		o.provider = NewCfgxConfigProvider(EnvConfigLoader{
			Base: YAMLConfigLoader{Path: path, Optional: true},
		})
	}
}

// LoadConfig resolves the effective configuration. runtime values win over
// loaded values, which win over defaults.
func LoadConfig(ctx context.Context, runtime Config, options ...ConfigOption) (Config, error) {
	settings := configLoadOptions{
		provider: NewCfgxConfigProvider(EnvConfigLoader{}),
		resolver: GoOptionsResolver{},
	}
	for _, option := range options {
		if option != nil {
			option(&settings)
		}
	}
	defaults := DefaultConfig()
	loaded, err := settings.provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return settings.resolver.Resolve(defaults, loaded, runtime)
}

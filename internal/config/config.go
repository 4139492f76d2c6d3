package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/promptguard-ai/promptguard/internal/detector"
)

// Config holds PromptGuard configuration.
type Config struct {
	Server          ServerConfig              `yaml:"server"`
	Detection       DetectionConfig           `yaml:"detection"`
	Risk            RiskConfig                `yaml:"risk"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	DefaultProvider string                    `yaml:"default_provider"`
	Clients         []ClientConfig            `yaml:"clients"`
	Logging         LoggingConfig             `yaml:"logging"`
	Activation      ActivationConfig          `yaml:"activation"`
	Telemetry       TelemetryConfig           `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`           // HTTP listen address, e.g. ":8080"
	MaxBodyBytes int64  `yaml:"max_body_bytes"` // request body cap for /v1/* endpoints
}

// DetectionConfig extends the built-in rule tables. Keys are attack
// category names (any case, spaces or dashes tolerated).
type DetectionConfig struct {
	ExtraRules map[string][]RuleConfig `yaml:"extra_rules"`
}

type RuleConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"` // keyword | regex
	Pattern string `yaml:"pattern"`
}

// RiskConfig overrides the built-in base weights. An empty map keeps
// the defaults; a non-empty map must cover every category.
type RiskConfig struct {
	Weights map[string]int `yaml:"weights"`
}

type ProviderConfig struct {
	Type      string `yaml:"type"`        // openai | echo
	BaseURL   string `yaml:"base_url"`    // e.g. "https://api.openai.com/v1"
	APIKeyEnv string `yaml:"api_key_env"` // e.g. "OPENAI_API_KEY"
	APIKey    string `yaml:"api_key"`     // inline key; prefer api_key_env
	Model     string `yaml:"model"`       // e.g. "gpt-4o-mini"
}

type ClientConfig struct {
	ID      string   `yaml:"id"`
	APIKeys []string `yaml:"api_keys"`
}

type LoggingConfig struct {
	ActivationLevel string `yaml:"activation_level"` // metadata | redacted | full
}

type ActivationConfig struct {
	QueueSize int          `yaml:"queue_size"`
	Workers   int          `yaml:"workers"`
	Sinks     []SinkConfig `yaml:"sinks"`
}

type SinkConfig struct {
	Type string `yaml:"type"` // stdout | file_jsonl | webhook
	Path string `yaml:"path"` // file_jsonl
	URL  string `yaml:"url"`  // webhook
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Protocol    string `yaml:"protocol"` // grpc | http
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 1 << 20,
		},
		Providers: map[string]ProviderConfig{},
		Logging: LoggingConfig{
			ActivationLevel: "metadata",
		},
		Activation: ActivationConfig{
			QueueSize: 1024,
			Workers:   2,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "promptguard",
		},
	}
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	// If no default provider is set but there's exactly one provider,
	// use that as default.
	if cfg.DefaultProvider == "" && len(cfg.Providers) == 1 {
		for name := range cfg.Providers {
			cfg.DefaultProvider = name
			break
		}
	}

	if cfg.Logging.ActivationLevel == "" {
		cfg.Logging.ActivationLevel = "metadata"
	}

	if cfg.Activation.QueueSize <= 0 {
		cfg.Activation.QueueSize = 1024
	}
	if cfg.Activation.Workers <= 0 {
		cfg.Activation.Workers = 2
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "promptguard"
	}
}

// ExtraRuleSpecs converts detection.extra_rules into detector rule
// specs. Callers must have run Validate first; unknown categories or
// bad kinds surface here as well for safety.
func (d DetectionConfig) ExtraRuleSpecs() (map[detector.Category][]detector.RuleSpec, error) {
	if len(d.ExtraRules) == 0 {
		return nil, nil
	}
	out := make(map[detector.Category][]detector.RuleSpec, len(d.ExtraRules))
	for name, rules := range d.ExtraRules {
		cat, ok := detector.ParseCategory(name)
		if !ok {
			return nil, &FieldError{Field: "detection.extra_rules", Msg: "unknown attack category " + name}
		}
		for _, r := range rules {
			out[cat] = append(out[cat], detector.RuleSpec{
				Name:    r.Name,
				Kind:    detector.RuleKind(r.Kind),
				Pattern: r.Pattern,
			})
		}
	}
	return out, nil
}

// WeightTable converts risk.weights into a detector-keyed table, or
// nil when no override is configured.
func (r RiskConfig) WeightTable() (map[detector.Category]int, error) {
	if len(r.Weights) == 0 {
		return nil, nil
	}
	out := make(map[detector.Category]int, len(r.Weights))
	for name, w := range r.Weights {
		cat, ok := detector.ParseCategory(name)
		if !ok {
			return nil, &FieldError{Field: "risk.weights", Msg: "unknown attack category " + name}
		}
		out[cat] = w
	}
	return out, nil
}

// FieldError reports a bad config value with its field path.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Msg
}

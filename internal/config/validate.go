package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/promptguard-ai/promptguard/internal/detector"
	"github.com/promptguard-ai/promptguard/internal/risk"
)

// Validate checks the loaded config for required fields and safe
// values. Validation errors are fatal at startup: a gateway with a
// broken rule table must refuse to run rather than run permissive.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}

	if err := validateDetection(cfg.Detection); err != nil {
		return err
	}
	if err := validateRisk(cfg.Risk); err != nil {
		return err
	}

	if cfg.DefaultProvider != "" {
		if _, ok := cfg.Providers[cfg.DefaultProvider]; !ok {
			return fmt.Errorf("default_provider %q not found in providers", cfg.DefaultProvider)
		}
	}
	for name, p := range cfg.Providers {
		if err := validateProviderConfig(name, p); err != nil {
			return err
		}
	}

	for _, c := range cfg.Clients {
		if strings.TrimSpace(c.ID) == "" {
			return errors.New("client id must be set")
		}
		if len(c.APIKeys) == 0 {
			return fmt.Errorf("client %q must define at least one api_keys entry", c.ID)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.ActivationLevel)) {
	case "metadata", "redacted", "full":
	default:
		return fmt.Errorf("logging.activation_level must be metadata, redacted or full, got %q",
			cfg.Logging.ActivationLevel)
	}

	if err := validateActivationConfig(cfg.Activation); err != nil {
		return err
	}

	return validateTelemetryConfig(cfg.Telemetry)
}

// validateDetection compiles every extra rule so a bad pattern cannot
// survive into a running detector.
func validateDetection(d DetectionConfig) error {
	extra, err := d.ExtraRuleSpecs()
	if err != nil {
		return err
	}
	if extra == nil {
		return nil
	}
	if _, err := detector.NewWithExtra(extra); err != nil {
		return fmt.Errorf("detection.extra_rules: %w", err)
	}
	return nil
}

func validateRisk(r RiskConfig) error {
	weights, err := r.WeightTable()
	if err != nil {
		return err
	}
	if weights == nil {
		return nil
	}
	if _, err := risk.NewScorer(weights); err != nil {
		return fmt.Errorf("risk.weights: %w", err)
	}
	return nil
}

func validateProviderConfig(name string, p ProviderConfig) error {
	switch strings.ToLower(strings.TrimSpace(p.Type)) {
	case "openai":
		if strings.TrimSpace(p.APIKeyEnv) == "" && strings.TrimSpace(p.APIKey) == "" {
			return fmt.Errorf("provider %q missing api key (api_key_env or api_key)", name)
		}
	case "echo":
	case "":
		return fmt.Errorf("provider %q missing type", name)
	default:
		return fmt.Errorf("provider %q has unknown type %q", name, p.Type)
	}
	if p.BaseURL != "" {
		u, err := url.Parse(p.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("provider %q has invalid base_url", name)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("provider %q base_url must be http or https", name)
		}
	}
	return nil
}

func validateActivationConfig(a ActivationConfig) error {
	for i, s := range a.Sinks {
		switch strings.ToLower(strings.TrimSpace(s.Type)) {
		case "stdout":
		case "file_jsonl":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("activation sink %d (file_jsonl) missing path", i)
			}
		case "webhook":
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("activation sink %d (webhook) missing url", i)
			}
			u, err := url.Parse(s.URL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("activation sink %d (webhook) has invalid url", i)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("activation sink %d (webhook) url must be http or https", i)
			}
		default:
			return fmt.Errorf("activation sink %d has unknown type %q", i, s.Type)
		}
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}

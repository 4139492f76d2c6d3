package config

import (
	"strings"
	"testing"
)

func validBase() *Config {
	cfg := defaultConfig()
	return cfg
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "missing server addr",
			mutate: func(c *Config) { c.Server.Addr = "" },
			want:   "server.addr",
		},
		{
			name:   "non-positive body limit",
			mutate: func(c *Config) { c.Server.MaxBodyBytes = 0 },
			want:   "max_body_bytes",
		},
		{
			name: "unknown extra rule category",
			mutate: func(c *Config) {
				c.Detection.ExtraRules = map[string][]RuleConfig{
					"MADE_UP": {{Name: "x", Kind: "keyword", Pattern: "x"}},
				}
			},
			want: "unknown attack category",
		},
		{
			name: "extra rule bad regex",
			mutate: func(c *Config) {
				c.Detection.ExtraRules = map[string][]RuleConfig{
					"JAILBREAK_POLICY_BYPASS": {{Name: "bad", Kind: "regex", Pattern: "("}},
				}
			},
			want: "extra_rules",
		},
		{
			name: "partial weight table",
			mutate: func(c *Config) {
				c.Risk.Weights = map[string]int{"INSTRUCTION_OVERRIDE": 15}
			},
			want: "missing weight",
		},
		{
			name: "weight out of range",
			mutate: func(c *Config) {
				c.Risk.Weights = map[string]int{
					"INSTRUCTION_OVERRIDE":    15,
					"ROLE_ESCALATION":         15,
					"DATA_EXFILTRATION":       125,
					"JAILBREAK_POLICY_BYPASS": 20,
					"INDIRECT_INJECTION":      10,
				}
			},
			want: "out of range",
		},
		{
			name: "unknown default provider",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{"p1": {Type: "echo"}}
				c.DefaultProvider = "missing"
			},
			want: "default_provider",
		},
		{
			name: "openai provider without key",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{"p1": {Type: "openai"}}
				c.DefaultProvider = "p1"
			},
			want: "missing api key",
		},
		{
			name: "invalid provider url",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{
					"p1": {Type: "openai", APIKeyEnv: "KEY", BaseURL: "::://bad"},
				}
				c.DefaultProvider = "p1"
			},
			want: "base_url",
		},
		{
			name: "unknown provider type",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{"p1": {Type: "carrier-pigeon"}}
				c.DefaultProvider = "p1"
			},
			want: "unknown type",
		},
		{
			name: "client without keys",
			mutate: func(c *Config) {
				c.Clients = []ClientConfig{{ID: "acme"}}
			},
			want: "api_keys",
		},
		{
			name:   "bad activation level",
			mutate: func(c *Config) { c.Logging.ActivationLevel = "verbose" },
			want:   "activation_level",
		},
		{
			name: "file sink without path",
			mutate: func(c *Config) {
				c.Activation.Sinks = []SinkConfig{{Type: "file_jsonl"}}
			},
			want: "missing path",
		},
		{
			name: "webhook sink bad url",
			mutate: func(c *Config) {
				c.Activation.Sinks = []SinkConfig{{Type: "webhook", URL: "ftp://x"}}
			},
			want: "http or https",
		},
		{
			name: "unknown sink type",
			mutate: func(c *Config) {
				c.Activation.Sinks = []SinkConfig{{Type: "syslog"}}
			},
			want: "unknown type",
		},
		{
			name: "telemetry enabled without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
			},
			want: "endpoint",
		},
		{
			name: "telemetry bad protocol",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = "collector:4317"
				c.Telemetry.Protocol = "udp"
			},
			want: "protocol",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBase()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			} else if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.want)
			}
		})
	}
}

func TestValidateOK(t *testing.T) {
	cfg := validBase()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}

	full := validBase()
	full.Detection.ExtraRules = map[string][]RuleConfig{
		"jailbreak_policy_bypass": {{Name: "evil", Kind: "keyword", Pattern: "evil mode"}},
	}
	full.Risk.Weights = map[string]int{
		"INSTRUCTION_OVERRIDE":    20,
		"ROLE_ESCALATION":         15,
		"DATA_EXFILTRATION":       30,
		"JAILBREAK_POLICY_BYPASS": 25,
		"INDIRECT_INJECTION":      10,
	}
	full.Providers = map[string]ProviderConfig{
		"openai": {Type: "openai", APIKeyEnv: "OPENAI_API_KEY", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
		"echo":   {Type: "echo"},
	}
	full.DefaultProvider = "openai"
	full.Clients = []ClientConfig{{ID: "acme", APIKeys: []string{"k1", "k2"}}}
	full.Activation.Sinks = []SinkConfig{
		{Type: "stdout"},
		{Type: "file_jsonl", Path: "/tmp/audit.jsonl"},
		{Type: "webhook", URL: "https://hooks.example.com/audit"},
	}
	full.Telemetry = TelemetryConfig{Enabled: true, Endpoint: "collector:4317", Protocol: "grpc", ServiceName: "promptguard"}
	if err := Validate(full); err != nil {
		t.Fatalf("full config should validate, got %v", err)
	}
}

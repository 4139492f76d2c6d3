package redact

import (
	"strings"
	"testing"
)

func TestStringRedaction(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		disallow []string
		require  []string
	}{
		{
			name:     "bearer header",
			input:    "Authorization: Bearer sk-secret-123",
			disallow: []string{"sk-secret-123"},
			require:  []string{"[REDACTED]"},
		},
		{
			name:     "api key field",
			input:    "api_key=sk-proj-abcdef123456 model=gpt-4o-mini",
			disallow: []string{"sk-proj-abcdef123456"},
			require:  []string{"api_key=[REDACTED]", "gpt-4o-mini"},
		},
		{
			name:     "bare openai style key",
			input:    "loaded provider with sk-aaaabbbbccccdddd",
			disallow: []string{"sk-aaaabbbbccccdddd"},
			require:  []string{"[REDACTED]"},
		},
		{
			name:     "webhook url with query token",
			input:    "sink url=https://hooks.example.com/audit/deliver?token=abc123",
			disallow: []string{"token=abc123"},
			require:  []string{"https://hooks.example.com/deliver"},
		},
		{
			name:     "mixed tokens",
			input:    "Bearer abc key=supersecret token=anotherone base=https://lic.example.test/files/base/",
			disallow: []string{"supersecret", "anotherone", "files/base/"},
			require:  []string{"[REDACTED]", "https://lic.example.test/[REDACTED_PATH]"},
		},
		{
			name:    "plain prompt text untouched",
			input:   "analyze action=REWRITE score=40 categories=2",
			require: []string{"action=REWRITE score=40 categories=2"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := String(tc.input)
			for _, bad := range tc.disallow {
				if bad != "" && strings.Contains(out, bad) {
					t.Fatalf("output still contains %q: %s", bad, out)
				}
			}
			for _, want := range tc.require {
				if want != "" && !strings.Contains(out, want) {
					t.Fatalf("output missing required substring %q: %s", want, out)
				}
			}
		})
	}
}

func TestSprintfRedacts(t *testing.T) {
	out := Sprintf("client key=%s action=%s", "abcdef123456", "BLOCK")
	if strings.Contains(out, "abcdef123456") {
		t.Fatalf("key leaked: %s", out)
	}
	if !strings.Contains(out, "action=BLOCK") {
		t.Fatalf("payload mangled: %s", out)
	}
}

func TestEmptyString(t *testing.T) {
	if got := String(""); got != "" {
		t.Fatalf("String(\"\") = %q", got)
	}
}

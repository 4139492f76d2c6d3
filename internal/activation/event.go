// Package activation delivers per-request audit events to configured
// sinks without blocking the request path. One event is emitted for
// every analyzed prompt; how much of the prompt the event carries is
// controlled by the logging activation level.
package activation

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/promptguard-ai/promptguard/internal/mitigation"
	"github.com/promptguard-ai/promptguard/internal/redact"
)

// Activation levels control prompt visibility in events.
const (
	LevelMetadata = "metadata" // no prompt text at all
	LevelRedacted = "redacted" // prompt with emails/tokens masked
	LevelFull     = "full"     // prompt as analyzed (still secret-redacted)
)

const previewLimit = 500

// Event is the canonical audit payload for one analyzed prompt.
type Event struct {
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id"`
	ClientID      string    `json:"client_id,omitempty"`
	Endpoint      string    `json:"endpoint"`
	Action        string    `json:"action"`
	RiskScore     int       `json:"risk_score"`
	RiskLevel     string    `json:"risk_level"`
	Categories    []string  `json:"categories,omitempty"`
	PromptPreview string    `json:"prompt_preview,omitempty"`
	LatencyMs     float64   `json:"latency_ms"`
}

// BuildParams collects the inputs for one audit event.
type BuildParams struct {
	RequestID    string
	ClientID     string
	Endpoint     string
	Verdict      *mitigation.Verdict
	LoggingLevel string
	Latency      time.Duration
}

// BuildEvent assembles an audit event from a verdict. It never returns
// prompt text above what the logging level permits.
func BuildEvent(params BuildParams) *Event {
	if params.Verdict == nil {
		return nil
	}
	v := params.Verdict

	return &Event{
		Version:       "1",
		Timestamp:     time.Now().UTC(),
		RequestID:     ensureRequestID(params.RequestID),
		ClientID:      params.ClientID,
		Endpoint:      params.Endpoint,
		Action:        string(v.Action),
		RiskScore:     v.RiskScore,
		RiskLevel:     string(v.RiskLevel),
		Categories:    cloneStrings(v.DetectedAttacks),
		PromptPreview: buildPreview(params.LoggingLevel, v.Prompt),
		LatencyMs:     float64(params.Latency) / float64(time.Millisecond),
	}
}

// LogEvent prints a redacted JSON representation of the event.
func LogEvent(ev *Event) {
	if ev == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		redact.Logf("activation: failed to marshal event: %v", err)
		return
	}
	redact.Logf("activation: %s", string(data))
}

func ensureRequestID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

var (
	emailRegex = regexp.MustCompile(`(?i)[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	tokenRegex = regexp.MustCompile(`[A-Za-z0-9_\-]{20,}`)
)

func buildPreview(level, prompt string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case LevelFull:
		return redact.String(truncate(prompt, previewLimit))
	case LevelRedacted:
		return redact.String(truncate(simpleRedact(prompt), previewLimit))
	default:
		// metadata-only: no preview
		return ""
	}
}

func simpleRedact(s string) string {
	s = emailRegex.ReplaceAllString(s, "[REDACTED_EMAIL]")
	s = tokenRegex.ReplaceAllString(s, "[REDACTED_TOKEN]")
	return s
}

// truncate cuts at a rune boundary so a multi-byte rune straddling the
// limit never puts invalid UTF-8 into the event.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "…"
}

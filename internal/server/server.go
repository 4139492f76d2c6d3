// Package server exposes the analyze pipeline over HTTP. The surface
// is deliberately small: one analyze endpoint, a compare demo, a
// read-only ruleset view, a health probe and the embedded console.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/promptguard-ai/promptguard/internal/activation"
	"github.com/promptguard-ai/promptguard/internal/auth"
	"github.com/promptguard-ai/promptguard/internal/config"
	"github.com/promptguard-ai/promptguard/internal/console"
	"github.com/promptguard-ai/promptguard/internal/detector"
	"github.com/promptguard-ai/promptguard/internal/mitigation"
	"github.com/promptguard-ai/promptguard/internal/provider"
	"github.com/promptguard-ai/promptguard/internal/redact"
	"github.com/promptguard-ai/promptguard/internal/risk"
	"github.com/promptguard-ai/promptguard/internal/telemetry"
)

// Server wires the detection pipeline, auth, providers and sinks
// behind a ServeMux.
type Server struct {
	cfg       *config.Config
	detector  *detector.Detector
	scorer    *risk.Scorer
	engine    *mitigation.Engine
	auth      *auth.Auth
	providers map[string]provider.Provider
	emitter   *activation.Emitter
	tel       *telemetry.Provider
	mux       *http.ServeMux
}

// New builds a server from validated config. The telemetry provider
// and emitter are owned by the caller; the server only uses them.
func New(cfg *config.Config, tel *telemetry.Provider, emitter *activation.Emitter) (*Server, error) {
	extra, err := cfg.Detection.ExtraRuleSpecs()
	if err != nil {
		return nil, err
	}
	det, err := detector.NewWithExtra(extra)
	if err != nil {
		return nil, err
	}

	weights, err := cfg.Risk.WeightTable()
	if err != nil {
		return nil, err
	}
	scorer, err := risk.NewScorer(weights)
	if err != nil {
		return nil, err
	}

	authn, err := auth.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		detector:  det,
		scorer:    scorer,
		engine:    mitigation.NewEngine(det, scorer, tel.Tracer()),
		auth:      authn,
		providers: buildProviders(cfg),
		emitter:   emitter,
		tel:       tel,
	}
	s.routes()
	return s, nil
}

// buildProviders instantiates the configured upstreams. Unknown types
// are rejected by config validation before this runs.
func buildProviders(cfg *config.Config) map[string]provider.Provider {
	out := make(map[string]provider.Provider, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		switch strings.ToLower(strings.TrimSpace(pc.Type)) {
		case "openai":
			apiKey := pc.APIKey
			if pc.APIKeyEnv != "" {
				if v, ok := os.LookupEnv(pc.APIKeyEnv); ok && v != "" {
					apiKey = v
				}
			}
			out[name] = provider.NewOpenAI(pc.BaseURL, apiKey, pc.Model, 60*time.Second, 0)
		case "echo":
			out[name] = provider.NewEcho()
		}
	}
	return out
}

func (s *Server) routes() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("/v1/compare", s.handleCompare)
	mux.HandleFunc("/v1/ruleset", s.handleRuleset)
	mux.Handle("/console/", console.Handler())
	mux.Handle("/console", http.RedirectHandler("/console/", http.StatusMovedPermanently))
	s.mux = mux
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "promptguard",
	})
}

// analyzeRequest is the wire shape of analyze and compare requests.
// Prompt stays raw so a missing key and a non-string value produce
// distinct errors before anything reaches the pipeline.
type analyzeRequest struct {
	Prompt json.RawMessage `json:"prompt"`
}

type analyzeResponse struct {
	RequestID string `json:"request_id"`
	*mitigation.Verdict
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	client, ok := s.requireClient(w, r)
	if !ok {
		return
	}
	prompt, ok := s.readPrompt(w, r)
	if !ok {
		return
	}

	requestID := uuid.NewString()
	ctx, span := s.tel.Tracer().Start(r.Context(), "promptguard.analyze_request")
	defer span.End()

	start := time.Now()
	verdict := s.engine.Analyze(ctx, prompt)
	latency := time.Since(start)

	span.SetAttributes(telemetry.SafeAttributes(map[string]interface{}{
		"promptguard.request_id": requestID,
		"promptguard.client_id":  client.ID,
		"promptguard.action":     string(verdict.Action),
		"promptguard.risk_score": verdict.RiskScore,
	})...)

	s.record("/v1/analyze", requestID, client.ID, verdict, latency)
	writeJSON(w, http.StatusOK, analyzeResponse{
		RequestID: requestID,
		Verdict:   verdict,
	})
}

// blockedResponseText is returned in place of a model response when a
// prompt is blocked.
const blockedResponseText = "This request was blocked: the prompt matched known prompt-injection patterns."

type compareResponse struct {
	RequestID         string              `json:"request_id"`
	DirectResponse    string              `json:"direct_response"`
	FrameworkResponse string              `json:"framework_response"`
	Analysis          *mitigation.Verdict `json:"analysis"`
}

// handleCompare runs the same prompt twice: straight to the provider,
// and through the gateway's verdict first. It exists to demonstrate
// the difference and is never part of the analyze path.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	client, ok := s.requireClient(w, r)
	if !ok {
		return
	}

	prov, ok := s.providers[s.cfg.DefaultProvider]
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "compare demo disabled: no provider configured")
		return
	}

	prompt, ok := s.readPrompt(w, r)
	if !ok {
		return
	}

	requestID := uuid.NewString()
	start := time.Now()
	verdict := s.engine.Analyze(r.Context(), prompt)
	latency := time.Since(start)
	s.record("/v1/compare", requestID, client.ID, verdict, latency)

	direct, err := prov.Complete(r.Context(), prompt)
	if err != nil {
		redact.Logf("compare: direct provider call failed: %v", err)
		writeError(w, http.StatusBadGateway, "provider error")
		return
	}

	var framework string
	switch verdict.Action {
	case mitigation.ActionBlock:
		framework = blockedResponseText
	case mitigation.ActionRewrite:
		framework, err = prov.Complete(r.Context(), *verdict.SanitizedPrompt)
	default:
		framework, err = prov.Complete(r.Context(), prompt)
	}
	if err != nil {
		redact.Logf("compare: guarded provider call failed: %v", err)
		writeError(w, http.StatusBadGateway, "provider error")
		return
	}

	writeJSON(w, http.StatusOK, compareResponse{
		RequestID:         requestID,
		DirectResponse:    direct,
		FrameworkResponse: framework,
		Analysis:          verdict,
	})
}

type rulesetCategory struct {
	Name        string                 `json:"name"`
	DisplayName string                 `json:"display_name"`
	RuleCount   int                    `json:"rule_count"`
	Weight      int                    `json:"weight"`
	Taxonomy    detector.TaxonomyEntry `json:"taxonomy"`
}

type rulesetResponse struct {
	Categories []rulesetCategory `json:"categories"`
}

func (s *Server) handleRuleset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := s.requireClient(w, r); !ok {
		return
	}

	resp := rulesetResponse{}
	for _, cat := range detector.Categories() {
		entry, _ := detector.Taxonomy(cat)
		resp.Categories = append(resp.Categories, rulesetCategory{
			Name:        string(cat),
			DisplayName: cat.DisplayName(),
			RuleCount:   s.detector.RuleCount(cat),
			Weight:      s.scorer.Weight(cat),
			Taxonomy:    entry,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// readPrompt enforces method, size limit and prompt shape. It writes
// the error response itself and reports success through ok.
func (s *Server) readPrompt(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return "", false
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	defer r.Body.Close()

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return "", false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return "", false
	}

	if len(req.Prompt) == 0 || string(req.Prompt) == "null" {
		writeError(w, http.StatusBadRequest, "missing prompt in request body")
		return "", false
	}
	var prompt string
	if err := json.Unmarshal(req.Prompt, &prompt); err != nil {
		writeError(w, http.StatusBadRequest, "prompt must be a string")
		return "", false
	}
	return prompt, true
}

// requireClient authenticates the request when auth is enabled. The
// zero Client is returned when auth is disabled.
func (s *Server) requireClient(w http.ResponseWriter, r *http.Request) (auth.Client, bool) {
	if !s.auth.Enabled() {
		return auth.Client{}, true
	}
	key := parseBearerToken(r.Header.Get("Authorization"))
	if key == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return auth.Client{}, false
	}
	client, ok := s.auth.Lookup(key)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown api key")
		return auth.Client{}, false
	}
	return client, true
}

func parseBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// record fans the verdict out to the audit emitter and telemetry.
func (s *Server) record(endpoint, requestID, clientID string, verdict *mitigation.Verdict, latency time.Duration) {
	s.emitter.Emit(context.Background(), activation.BuildEvent(activation.BuildParams{
		RequestID:    requestID,
		ClientID:     clientID,
		Endpoint:     endpoint,
		Verdict:      verdict,
		LoggingLevel: s.cfg.Logging.ActivationLevel,
		Latency:      latency,
	}))
	s.tel.RecordVerdict(string(verdict.Action), string(verdict.RiskLevel), clientID,
		float64(latency)/float64(time.Millisecond), verdict.DetectedAttacks)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		redact.Logf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

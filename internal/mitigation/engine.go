// Package mitigation combines detection and scoring into a verdict:
// what was found, how risky it is, and what to do about the prompt.
package mitigation

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/promptguard-ai/promptguard/internal/detector"
	"github.com/promptguard-ai/promptguard/internal/risk"
)

// Action is the disposition of a prompt.
type Action string

const (
	ActionAllow   Action = "ALLOW"   // 0–39: pass through untouched
	ActionRewrite Action = "REWRITE" // 40–69: pass through sanitized
	ActionBlock   Action = "BLOCK"   // 70–100: refuse
)

// Verdict is the full analysis of one prompt. It is the wire shape of
// the analyze endpoint and the payload of audit events.
type Verdict struct {
	Prompt          string                            `json:"prompt"`
	SanitizedPrompt *string                           `json:"sanitized_prompt"`
	Action          Action                            `json:"action"`
	RiskScore       int                               `json:"risk_score"`
	RiskLevel       risk.Level                        `json:"risk_level"`
	DetectedAttacks []string                          `json:"detected_attacks"`
	Breakdown       map[string]int                    `json:"breakdown"`
	Taxonomy        map[string]detector.TaxonomyEntry `json:"taxonomy"`
	Explanation     string                            `json:"explanation"`
	Confidence      float64                           `json:"confidence"`
}

// Engine runs the analyze pipeline. It is stateless between calls and
// safe for concurrent use.
type Engine struct {
	detector *detector.Detector
	scorer   *risk.Scorer
	tracer   trace.Tracer
}

// NewEngine wires a detector and scorer into an engine. A nil tracer
// disables tracing.
func NewEngine(d *detector.Detector, s *risk.Scorer, tracer trace.Tracer) *Engine {
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("")
	}
	return &Engine{detector: d, scorer: s, tracer: tracer}
}

// Analyze inspects a prompt and returns its verdict. Analysis never
// fails: any string, including the empty string, produces a verdict.
func (e *Engine) Analyze(ctx context.Context, prompt string) *Verdict {
	_, span := e.tracer.Start(ctx, "mitigation.analyze")
	defer span.End()

	res := e.detector.Detect(prompt)
	assessment := e.scorer.Score(res)
	action := ActionFor(assessment.Score)

	v := &Verdict{
		Prompt:          prompt,
		Action:          action,
		RiskScore:       assessment.Score,
		RiskLevel:       assessment.Level,
		DetectedAttacks: make([]string, 0, len(assessment.Breakdown)),
		Breakdown:       make(map[string]int, len(assessment.Breakdown)),
		Taxonomy:        make(map[string]detector.TaxonomyEntry, len(assessment.Breakdown)),
		Confidence:      float64(assessment.Score) / 100,
	}
	for _, cat := range res.Detected() {
		v.DetectedAttacks = append(v.DetectedAttacks, string(cat))
		v.Breakdown[string(cat)] = assessment.Breakdown[cat]
		if entry, ok := detector.Taxonomy(cat); ok {
			v.Taxonomy[string(cat)] = entry
		}
	}
	if action == ActionRewrite {
		sanitized := Sanitize(prompt, res)
		v.SanitizedPrompt = &sanitized
	}
	v.Explanation = explain(res, assessment, action)

	span.SetAttributes(
		attribute.String("promptguard.action", string(action)),
		attribute.Int("promptguard.risk_score", assessment.Score),
		attribute.String("promptguard.risk_level", string(assessment.Level)),
		attribute.Int("promptguard.categories", len(v.DetectedAttacks)),
	)
	return v
}

// ActionFor maps a clamped risk score to its action. The bands align
// exactly with the risk levels: LOW allows, MEDIUM rewrites, HIGH blocks.
func ActionFor(score int) Action {
	switch {
	case score >= 70:
		return ActionBlock
	case score >= 40:
		return ActionRewrite
	default:
		return ActionAllow
	}
}

// explain builds the human-readable summary. It is a pure function of
// the detection result and the assessment, so identical inputs always
// produce identical text.
func explain(res *detector.Result, a risk.Assessment, action Action) string {
	detected := res.Detected()
	if len(detected) == 0 {
		return "No known injection patterns detected; prompt allowed."
	}
	names := make([]string, len(detected))
	for i, c := range detected {
		names[i] = fmt.Sprintf("%s (%d match(es))", c.DisplayName(), res.Count(c))
	}
	return fmt.Sprintf("Detected %s. Risk score %d (%s); action %s.",
		strings.Join(names, ", "), a.Score, a.Level, action)
}

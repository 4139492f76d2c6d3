// Package risk turns detection results into a bounded numeric score
// and a coarse risk level. Scoring is pure arithmetic over match
// counts: no I/O, no randomness, no state.
package risk

import (
	"fmt"
	"math"

	"github.com/promptguard-ai/promptguard/internal/detector"
)

// Level is the coarse classification of a score.
type Level string

const (
	LevelLow    Level = "LOW"    // 0–39
	LevelMedium Level = "MEDIUM" // 40–69
	LevelHigh   Level = "HIGH"   // 70–100
)

// MaxScore is the ceiling every final score is clamped to.
const MaxScore = 100

// DefaultWeights returns the built-in base weight per category.
// Weights reflect how damaging a single instance of the category is,
// not how common it is.
func DefaultWeights() map[detector.Category]int {
	return map[detector.Category]int{
		detector.InstructionOverride:   15,
		detector.RoleEscalation:        15,
		detector.DataExfiltration:      25,
		detector.JailbreakPolicyBypass: 20,
		detector.IndirectInjection:     10,
	}
}

// Assessment is the scored view of one detection result.
type Assessment struct {
	// Score is the clamped total in [0,100].
	Score int
	// Level classifies Score.
	Level Level
	// Breakdown holds the per-category contribution before clamping,
	// for every category that fired. The breakdown values may sum to
	// more than Score when clamping applied.
	Breakdown map[detector.Category]int
}

// Scorer computes assessments from a fixed weight table.
type Scorer struct {
	weights map[detector.Category]int
}

// NewScorer builds a scorer from the given weight table. A nil table
// selects the defaults; a partial table is rejected so that a typo in
// config cannot silently zero out a category.
func NewScorer(weights map[detector.Category]int) (*Scorer, error) {
	if weights == nil {
		weights = DefaultWeights()
	}
	for _, c := range detector.Categories() {
		w, ok := weights[c]
		if !ok {
			return nil, fmt.Errorf("missing weight for category %s", c)
		}
		if w < 0 || w > MaxScore {
			return nil, fmt.Errorf("weight for %s out of range: %d", c, w)
		}
	}
	cp := make(map[detector.Category]int, len(weights))
	for c, w := range weights {
		cp[c] = w
	}
	return &Scorer{weights: cp}, nil
}

// MustNewScorer is NewScorer for tables known valid at compile time.
func MustNewScorer(weights map[detector.Category]int) *Scorer {
	s, err := NewScorer(weights)
	if err != nil {
		panic(err)
	}
	return s
}

// Weight returns the base weight for a category.
func (s *Scorer) Weight(c detector.Category) int {
	return s.weights[c]
}

// Score computes the assessment for one detection result. Each fired
// category contributes weight × multiplier(count), rounded half-up;
// contributions sum and the total clamps at MaxScore.
func (s *Scorer) Score(res *detector.Result) Assessment {
	a := Assessment{
		Breakdown: make(map[detector.Category]int),
	}
	total := 0
	for _, c := range detector.Categories() {
		n := res.Count(c)
		if n == 0 {
			continue
		}
		contrib := roundHalfUp(float64(s.weights[c]) * multiplier(n))
		a.Breakdown[c] = contrib
		total += contrib
	}
	if total > MaxScore {
		total = MaxScore
	}
	a.Score = total
	a.Level = LevelFor(total)
	return a
}

// LevelFor classifies a clamped score.
func LevelFor(score int) Level {
	switch {
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

// multiplier scales a category's weight by how many of its rules fired.
// It saturates at four matches: past that point more matches add no
// information about intent.
func multiplier(matches int) float64 {
	switch {
	case matches <= 1:
		return 1.0
	case matches == 2:
		return 1.5
	case matches == 3:
		return 2.0
	default:
		return 2.5
	}
}

// roundHalfUp rounds to the nearest integer with ties going up,
// so 22.5 becomes 23.
func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}

package handlers

import (
	"context"

	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/scorer"
	"github.com/archon-labs/intelligence-engine/internal/store"
	"github.com/archon-labs/intelligence-engine/pkg/linq"
)

// HybridScoreHandler is a pure computation over the scorer package,
// optionally sourcing pattern_keywords from the PatternStore when the
// payload names a pattern ID instead of supplying keywords inline. Uses
// pkg/linq.Find for the pattern-ID lookup rather than a hand-rolled
// loop, per the teacher's generic-helpers package.
type HybridScoreHandler struct {
	deps Deps
}

func (h *HybridScoreHandler) Execute(ctx context.Context, payload any) (Result, error) {
	in, err := castPayload[envelope.HybridScoreInput](payload)
	if err != nil {
		return Result{}, err
	}

	patternKeywords := in.PatternKeywords
	partial := false
	var reasons []string

	if len(patternKeywords) == 0 && in.PatternID != "" && h.deps.Stores.Patterns != nil {
		patterns, lookupErr := h.deps.Stores.Patterns.Lookup(ctx, store.PatternFilters{Limit: 1})
		if lookupErr != nil {
			partial = true
			reasons = append(reasons, "pattern lookup failed: "+lookupErr.Error())
		} else {
			match := linq.Find(patterns, func(p store.Pattern) bool { return p.ID == in.PatternID })
			if match.ID != "" {
				patternKeywords = match.Keywords
			}
		}
	}

	scorerInput := scorer.Input{
		PatternKeywords: patternKeywords,
		ContextKeywords: in.ContextKeywords,
		QualityScore:    in.QualityScore,
		SuccessRate:     in.SuccessRate,
		SemanticScore:   in.SemanticScore,
		ConfidenceScore: in.ConfidenceScore,
		Bounds:          scorer.DefaultBounds(),
	}
	if in.Weights != nil {
		scorerInput.Weights = &scorer.Weights{
			Keyword:     in.Weights.Keyword,
			Semantic:    in.Weights.Semantic,
			Quality:     in.Weights.Quality,
			SuccessRate: in.Weights.SuccessRate,
		}
	}
	if in.TaskCharacteristics != nil {
		scorerInput.AdaptiveWeighting = in.AdaptiveWeighting
		scorerInput.Task = &scorer.TaskCharacteristics{
			Complexity: scorer.Complexity(in.TaskCharacteristics.Complexity),
			Domain:     in.TaskCharacteristics.Domain,
		}
	}

	result := scorer.Score(scorerInput)

	return Result{Data: map[string]any{
		"hybrid_score": result.HybridScore,
		"confidence":   result.Confidence,
		"breakdown": map[string]float64{
			"keyword":      result.Breakdown.Keyword,
			"semantic":     result.Breakdown.Semantic,
			"quality":      result.Breakdown.Quality,
			"success_rate": result.Breakdown.SuccessRate,
		},
		"weights_used": map[string]float64{
			"keyword":      result.WeightsUsed.Keyword,
			"semantic":     result.WeightsUsed.Semantic,
			"quality":      result.WeightsUsed.Quality,
			"success_rate": result.WeightsUsed.SuccessRate,
		},
		"weights_pre_clamp": map[string]float64{
			"keyword":      result.WeightsPreClamp.Keyword,
			"semantic":     result.WeightsPreClamp.Semantic,
			"quality":      result.WeightsPreClamp.Quality,
			"success_rate": result.WeightsPreClamp.SuccessRate,
		},
	}, PartialResults: partial, DegradedReasons: reasons}, nil
}

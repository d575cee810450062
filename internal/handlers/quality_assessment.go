package handlers

import (
	"context"
	"fmt"

	"github.com/archon-labs/intelligence-engine/internal/envelope"
)

// QualityAssessmentHandler scores a source artifact's quality. A
// pre-supplied quality_score is trusted as-is; otherwise the analyzer's
// confidence on the submitted content stands in for it.
type QualityAssessmentHandler struct {
	deps Deps
}

func (h *QualityAssessmentHandler) Execute(ctx context.Context, payload any) (Result, error) {
	in, err := castPayload[envelope.QualityAssessmentPayload](payload)
	if err != nil {
		return Result{}, err
	}

	if in.QualityScore != nil {
		return Result{Data: map[string]any{
			"source_path":   in.SourcePath,
			"quality_score": *in.QualityScore,
			"source":        "supplied",
		}}, nil
	}

	if in.Content == "" || h.deps.Analyzer == nil {
		return Result{Data: map[string]any{
			"source_path":   in.SourcePath,
			"quality_score": 0.5,
			"source":        "default",
		}, PartialResults: true, DegradedReasons: []string{"no quality_score supplied and no content/analyzer available"}}, nil
	}

	result, err := h.deps.Analyzer.Analyze(ctx, in.Content, fmt.Sprintf("quality_assessment:%s", in.Language))
	if err != nil {
		return Result{}, err
	}

	return Result{Data: map[string]any{
		"source_path":   in.SourcePath,
		"quality_score": result.Confidence,
		"source":        "analyzer",
		"entities":      result.Entities,
	}}, nil
}

package handlers

import (
	"context"

	"github.com/archon-labs/intelligence-engine/internal/envelope"
)

// ComprehensiveAnalysisHandler runs entity extraction, optional
// embedding enrichment, and optional pattern/relationship extraction.
// A failure of the optional embedding or pattern-extraction step degrades
// the result to partial_results rather than failing the whole message.
// Entity extraction has no fallback: an analyzer failure fails the
// message with the analyzer's error, which the engine then classifies.
type ComprehensiveAnalysisHandler struct {
	deps Deps
}

func (h *ComprehensiveAnalysisHandler) Execute(ctx context.Context, payload any) (Result, error) {
	in, err := castPayload[envelope.ComprehensiveAnalysisInput](payload)
	if err != nil {
		return Result{}, err
	}

	data := map[string]any{"source_path": in.SourcePath}
	partial := false
	var reasons []string

	if h.deps.Analyzer == nil {
		return Result{}, errNoAnalyzer
	}

	analysis, err := h.deps.Analyzer.Analyze(ctx, in.Content, in.Context)
	if err != nil {
		return Result{}, err // entity extraction is the core of the operation: no degraded result without it
	}
	data["entities"] = analysis.Entities
	data["confidence"] = analysis.Confidence

	if in.IncludeEmbedding {
		if h.deps.Embedder == nil {
			partial = true
			reasons = append(reasons, "embedder not configured")
		} else {
			vectors, embedErr := h.deps.Embedder.Embed(ctx, []string{in.Content})
			if embedErr != nil {
				partial = true
				reasons = append(reasons, "embedding failed: "+embedErr.Error())
			} else if len(vectors) == 1 {
				data["embedding"] = vectors[0]
			}
		}
	}

	if in.IncludePatterns {
		extracted, extractErr := h.deps.Analyzer.ExtractDocument(ctx, in.Content)
		if extractErr != nil {
			partial = true
			reasons = append(reasons, "pattern extraction failed: "+extractErr.Error())
		} else {
			data["extracted_entities"] = extracted.Entities
		}
	}

	return Result{Data: data, PartialResults: partial, DegradedReasons: reasons}, nil
}

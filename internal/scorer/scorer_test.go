package scorer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestScoreHappyPath(t *testing.T) {
	result := Score(Input{
		PatternKeywords: []string{"fastapi", "async", "api", "rest"},
		ContextKeywords: []string{"fastapi", "rest", "endpoint"},
		QualityScore:    ptr(0.85),
		SuccessRate:     ptr(0.90),
		SemanticScore:   ptr(0.82),
	})

	assert.InDelta(t, 0.4, result.Breakdown.Keyword, 1e-9)
	assert.InDelta(t, 0.737, result.HybridScore, 1e-3)
	assert.InDelta(t, 0.71, result.Confidence, 1e-2)
}

func TestScoreIrrelevantPatternZeroOverlap(t *testing.T) {
	result := Score(Input{
		PatternKeywords: []string{"react", "component", "jsx", "frontend", "ui"},
		ContextKeywords: []string{"database", "sql", "migration", "postgresql"},
		QualityScore:    ptr(0.80),
		SuccessRate:     ptr(0.75),
		SemanticScore:   ptr(0.20),
	})

	assert.Equal(t, 0.0, result.Breakdown.Keyword)
	assert.GreaterOrEqual(t, result.HybridScore, 0.0)
	assert.LessOrEqual(t, result.HybridScore, 1.0)
}

func TestScoreEmptyKeywordsYieldsZero(t *testing.T) {
	result := Score(Input{})
	assert.Equal(t, 0.0, result.Breakdown.Keyword)
}

func TestScoreMissingDimensionsDefaultToHalf(t *testing.T) {
	result := Score(Input{PatternKeywords: []string{"a"}, ContextKeywords: []string{"a"}})
	assert.Equal(t, 0.5, result.Breakdown.Quality)
	assert.Equal(t, 0.5, result.Breakdown.SuccessRate)
	assert.Equal(t, 0.5, result.Breakdown.Semantic)
}

func TestScoreWeightsNormalizeToOne(t *testing.T) {
	result := Score(Input{
		PatternKeywords:   []string{"a", "b"},
		ContextKeywords:   []string{"a"},
		AdaptiveWeighting: true,
		Task:              &TaskCharacteristics{Complexity: ComplexityHigh},
	})
	sum := result.WeightsUsed.Keyword + result.WeightsUsed.Semantic + result.WeightsUsed.Quality + result.WeightsUsed.SuccessRate
	assert.InDelta(t, 1.0, sum, 1e-6)

	bounds := DefaultBounds()
	for _, w := range []float64{result.WeightsUsed.Keyword, result.WeightsUsed.Semantic, result.WeightsUsed.Quality, result.WeightsUsed.SuccessRate} {
		assert.GreaterOrEqual(t, w, bounds.Min-1e-9)
		assert.LessOrEqual(t, w, bounds.Max+1e-9)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	in := Input{
		PatternKeywords: []string{"a", "b", "c"},
		ContextKeywords: []string{"b", "c", "d"},
		QualityScore:    ptr(0.4),
		SuccessRate:     ptr(0.6),
		SemanticScore:   ptr(0.9),
	}
	r1 := Score(in)
	r2 := Score(in)
	assert.Equal(t, r1, r2)
}

func TestScoreRangeAlwaysValid(t *testing.T) {
	inputs := []Input{
		{},
		{PatternKeywords: []string{"x"}, ContextKeywords: []string{"x"}, QualityScore: ptr(1), SuccessRate: ptr(1), SemanticScore: ptr(1)},
		{PatternKeywords: []string{"x"}, ContextKeywords: []string{"y"}, QualityScore: ptr(0), SuccessRate: ptr(0), SemanticScore: ptr(0)},
	}
	for _, in := range inputs {
		r := Score(in)
		assert.False(t, math.IsNaN(r.HybridScore))
		assert.GreaterOrEqual(t, r.HybridScore, 0.0)
		assert.LessOrEqual(t, r.HybridScore, 1.0)
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0)
	}
}

// Package scorer implements C9: the hybrid scorer that merges keyword,
// semantic, quality, and success-rate dimensions with adaptive weighting.
// Pure and allocation-light in its hot path; jaccard's set arithmetic is
// hand-rolled over maps rather than pkg/linq's slice helpers, since
// membership testing needs O(1) lookups that a slice-Filter pass can't
// give without its own map anyway.
package scorer

import (
	"math"
	"strings"
)

// Weights are the four dimensional weights, always summing to 1.0 after
// Score clamps and normalizes them.
type Weights struct {
	Keyword     float64
	Semantic    float64
	Quality     float64
	SuccessRate float64
}

// DefaultWeights matches spec §4.9's default distribution.
func DefaultWeights() Weights {
	return Weights{Keyword: 0.25, Semantic: 0.35, Quality: 0.20, SuccessRate: 0.20}
}

func (w Weights) sum() float64 {
	return w.Keyword + w.Semantic + w.Quality + w.SuccessRate
}

// Bounds clamps every dimension of Weights to [min, max] before
// normalization, matching spec §4.9 step 4 and the Open Question
// resolution in SPEC_FULL.md §9 to prefer per-dimension bounds.
type Bounds struct {
	Min float64
	Max float64
}

// DefaultBounds matches spec §4.9's example bound of [0.10, 0.80].
func DefaultBounds() Bounds {
	return Bounds{Min: 0.10, Max: 0.80}
}

func (b Bounds) clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Complexity is the task-complexity hint used by adaptive weighting.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// TaskCharacteristics optionally nudges weight distribution per spec
// §4.9 step 3.
type TaskCharacteristics struct {
	Complexity Complexity
	Domain     string
}

// DomainShift names, for a given domain, which dimension it favors
// and by how many points (expressed as a fraction of 1.0, e.g. 0.10
// for the "±10-point nudge" spec §4.9 describes). Callers configure
// this set; an empty map disables domain nudging.
type DomainShift struct {
	FavoredDimension string // "keyword" | "semantic" | "quality" | "success_rate"
	Amount           float64
}

// Input is everything Score needs. PatternKeywords/ContextKeywords are
// case-folded internally; missing dimensional scores default to 0.5.
type Input struct {
	PatternKeywords []string
	ContextKeywords []string

	QualityScore     *float64
	SuccessRate      *float64
	SemanticScore    *float64
	ConfidenceScore  *float64 // fallback for SemanticScore when SemanticScore is nil

	Weights           *Weights
	Bounds            Bounds
	AdaptiveWeighting bool
	Task              *TaskCharacteristics
	DomainShifts      map[string]DomainShift
}

// Breakdown reports each dimension's raw score, for diagnosability.
type Breakdown struct {
	Keyword     float64
	Semantic    float64
	Quality     float64
	SuccessRate float64
}

// Result is the hybrid-score record from spec §3.
type Result struct {
	HybridScore   float64
	Breakdown     Breakdown
	Confidence    float64
	WeightsUsed   Weights // post-clamp, post-normalization
	WeightsPreClamp Weights // pre-clamp, pre-normalization (SPEC_FULL.md §9 diagnosability decision)
}

// Score runs the full algorithm from spec §4.9. It is pure, deterministic,
// and allocates only for the two keyword sets.
func Score(in Input) Result {
	keywordScore := jaccard(in.PatternKeywords, in.ContextKeywords)

	quality := orDefault(in.QualityScore, 0.5)
	success := orDefault(in.SuccessRate, 0.5)
	semantic := resolveSemantic(in.SemanticScore, in.ConfidenceScore)

	bounds := in.Bounds
	if bounds == (Bounds{}) {
		bounds = DefaultBounds()
	}

	base := DefaultWeights()
	if in.Weights != nil {
		base = *in.Weights
	}

	preClamp := base
	if in.AdaptiveWeighting && in.Task != nil {
		preClamp = applyComplexityShift(preClamp, in.Task.Complexity)
		if in.Task.Domain != "" && in.DomainShifts != nil {
			if shift, ok := in.DomainShifts[in.Task.Domain]; ok {
				preClamp = applyDomainShift(preClamp, shift)
			}
		}
	}

	clamped := Weights{
		Keyword:     bounds.clamp(preClamp.Keyword),
		Semantic:    bounds.clamp(preClamp.Semantic),
		Quality:     bounds.clamp(preClamp.Quality),
		SuccessRate: bounds.clamp(preClamp.SuccessRate),
	}
	normalized := normalize(clamped)

	breakdown := Breakdown{Keyword: keywordScore, Semantic: semantic, Quality: quality, SuccessRate: success}

	hybrid := normalized.Keyword*keywordScore +
		normalized.Semantic*semantic +
		normalized.Quality*quality +
		normalized.SuccessRate*success
	hybrid = clampUnit(hybrid)

	dims := []float64{keywordScore, semantic, quality, success}
	confidence := mean(dims) * (1 - math.Min(variance(dims), 1))
	confidence = clampUnit(confidence)

	return Result{
		HybridScore:     hybrid,
		Breakdown:       breakdown,
		Confidence:      confidence,
		WeightsUsed:     normalized,
		WeightsPreClamp: preClamp,
	}
}

// jaccard computes |A ∩ B| / |A ∪ B| over case-folded keyword sets.
// An empty union yields 0, never NaN.
func jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	union := make(map[string]struct{}, len(setA)+len(setB))
	for k := range setA {
		union[k] = struct{}{}
		if _, ok := setB[k]; ok {
			intersection++
		}
	}
	for k := range setB {
		union[k] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	delete(set, "")
	return set
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func resolveSemantic(semantic, confidence *float64) float64 {
	if semantic != nil {
		return *semantic
	}
	if confidence != nil {
		return *confidence
	}
	return 0.5
}

const shiftPoints = 0.10

func applyComplexityShift(w Weights, complexity Complexity) Weights {
	switch complexity {
	case ComplexityHigh:
		// shift toward semantic+keyword, away from quality+success
		w.Semantic += shiftPoints
		w.Keyword += shiftPoints
		w.Quality -= shiftPoints
		w.SuccessRate -= shiftPoints
	case ComplexityLow:
		w.Semantic -= shiftPoints
		w.Keyword -= shiftPoints
		w.Quality += shiftPoints
		w.SuccessRate += shiftPoints
	}
	return w
}

func applyDomainShift(w Weights, shift DomainShift) Weights {
	switch shift.FavoredDimension {
	case "keyword":
		w.Keyword += shift.Amount
	case "semantic":
		w.Semantic += shift.Amount
	case "quality":
		w.Quality += shift.Amount
	case "success_rate":
		w.SuccessRate += shift.Amount
	}
	return w
}

func normalize(w Weights) Weights {
	sum := w.sum()
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Keyword:     w.Keyword / sum,
		Semantic:    w.Semantic / sum,
		Quality:     w.Quality / sum,
		SuccessRate: w.SuccessRate / sum,
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

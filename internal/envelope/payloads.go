package envelope

// QualityAssessmentPayload requests a quality score for a source artifact.
type QualityAssessmentPayload struct {
	SourcePath   string   `json:"source_path"`
	Language     string   `json:"language,omitempty"`
	Content      string   `json:"content,omitempty"`
	QualityScore *float64 `json:"quality_score,omitempty"`
}

func (p QualityAssessmentPayload) Validate() error {
	if p.SourcePath == "" {
		return &ValidationError{Field: "source_path", Reason: "must not be empty"}
	}
	if p.QualityScore != nil && (*p.QualityScore < 0 || *p.QualityScore > 1) {
		return &ValidationError{Field: "quality_score", Reason: "must be within [0,1]"}
	}
	return nil
}

// OneXComplianceInput requests a compliance check against the 1x rules.
type OneXComplianceInput struct {
	SourcePath string `json:"source_path"`
	RuleSet    string `json:"rule_set,omitempty"`
	Content    string `json:"content,omitempty"`
}

func (p OneXComplianceInput) Validate() error {
	if p.SourcePath == "" {
		return &ValidationError{Field: "source_path", Reason: "must not be empty"}
	}
	return nil
}

// PatternExtractionInput requests pattern mining over a filter set.
type PatternExtractionInput struct {
	Filters map[string]string `json:"filters,omitempty"`
	Limit   int               `json:"limit,omitempty"`
}

func (p PatternExtractionInput) Validate() error { return nil }

// ArchitecturalComplianceInput requests an architectural rule check.
type ArchitecturalComplianceInput struct {
	SourcePath string   `json:"source_path"`
	RuleNames  []string `json:"rule_names,omitempty"`
}

func (p ArchitecturalComplianceInput) Validate() error {
	if p.SourcePath == "" {
		return &ValidationError{Field: "source_path", Reason: "must not be empty"}
	}
	return nil
}

// ComprehensiveAnalysisInput requests full-pipeline enrichment: entities,
// embeddings, and pattern/relationship extraction.
type ComprehensiveAnalysisInput struct {
	SourcePath      string `json:"source_path"`
	Content         string `json:"content"`
	Context         string `json:"context,omitempty"`
	IncludeEmbedding bool  `json:"include_embedding,omitempty"`
	IncludePatterns  bool  `json:"include_patterns,omitempty"`
}

func (p ComprehensiveAnalysisInput) Validate() error {
	if p.SourcePath == "" {
		return &ValidationError{Field: "source_path", Reason: "must not be empty"}
	}
	if p.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	return nil
}

// TaskCharacteristics carries the task hints the hybrid scorer's adaptive
// weighting consumes.
type TaskCharacteristics struct {
	Complexity string `json:"complexity,omitempty"` // "low" | "medium" | "high"
	Domain     string `json:"domain,omitempty"`
}

type ScoreWeights struct {
	Keyword     float64 `json:"keyword"`
	Semantic    float64 `json:"semantic"`
	Quality     float64 `json:"quality"`
	SuccessRate float64 `json:"success_rate"`
}

// HybridScoreInput is the pure-computation payload for C9.
type HybridScoreInput struct {
	PatternID          string               `json:"pattern_id,omitempty"`
	PatternKeywords    []string             `json:"pattern_keywords"`
	ContextKeywords     []string             `json:"context_keywords"`
	QualityScore        *float64             `json:"quality_score,omitempty"`
	SuccessRate          *float64             `json:"success_rate,omitempty"`
	SemanticScore        *float64             `json:"semantic_score,omitempty"`
	ConfidenceScore      *float64             `json:"confidence_score,omitempty"`
	Weights              *ScoreWeights        `json:"weights,omitempty"`
	TaskCharacteristics  *TaskCharacteristics `json:"task_characteristics,omitempty"`
	AdaptiveWeighting    bool                 `json:"adaptive_weighting,omitempty"`
}

func (p HybridScoreInput) Validate() error {
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"quality_score", p.QualityScore},
		{"success_rate", p.SuccessRate},
		{"semantic_score", p.SemanticScore},
		{"confidence_score", p.ConfidenceScore},
	} {
		if f.v != nil && (*f.v < 0 || *f.v > 1) {
			return &ValidationError{Field: f.name, Reason: "must be within [0,1]"}
		}
	}
	return nil
}

// InfrastructureScanInput requests an opaque infrastructure-store query.
type InfrastructureScanInput struct {
	Scope   string            `json:"scope"`
	Filters map[string]string `json:"filters,omitempty"`
}

func (p InfrastructureScanInput) Validate() error {
	if p.Scope == "" {
		return &ValidationError{Field: "scope", Reason: "must not be empty"}
	}
	return nil
}

// ModelDiscoveryInput requests discovery of model definitions via the
// graph store.
type ModelDiscoveryInput struct {
	Query string `json:"query"`
}

func (p ModelDiscoveryInput) Validate() error {
	if p.Query == "" {
		return &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	return nil
}

// SchemaDiscoveryInput requests schema introspection scoped to a store.
type SchemaDiscoveryInput struct {
	Scope string `json:"scope"`
}

func (p SchemaDiscoveryInput) Validate() error {
	if p.Scope == "" {
		return &ValidationError{Field: "scope", Reason: "must not be empty"}
	}
	return nil
}

// DependencyAuditInput requests third-party dependency/version/license
// scanning against a manifest, scoped via the same SchemaStore
// introspection schema_discovery uses.
type DependencyAuditInput struct {
	ManifestPath string   `json:"manifest_path"`
	Ecosystem    string   `json:"ecosystem,omitempty"` // "go" | "npm" | "pip" | ...
	CheckLicenses bool    `json:"check_licenses,omitempty"`
	AllowList    []string `json:"allow_list,omitempty"`
}

func (p DependencyAuditInput) Validate() error {
	if p.ManifestPath == "" {
		return &ValidationError{Field: "manifest_path", Reason: "must not be empty"}
	}
	return nil
}

// payloadValidator is implemented by every typed payload above.
type payloadValidator interface {
	Validate() error
}

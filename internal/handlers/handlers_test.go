package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-labs/intelligence-engine/internal/analyzer"
	"github.com/archon-labs/intelligence-engine/internal/breaker"
	"github.com/archon-labs/intelligence-engine/internal/cache"
	"github.com/archon-labs/intelligence-engine/internal/embedder"
	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/retryclassifier"
	"github.com/archon-labs/intelligence-engine/internal/store"
)

type fakePatternStore struct {
	patterns []store.Pattern
	err      error
}

func (f fakePatternStore) Lookup(context.Context, store.PatternFilters) ([]store.Pattern, error) {
	return f.patterns, f.err
}

func TestDispatcherRoutesKnownOperations(t *testing.T) {
	d := NewDispatcher(Deps{})
	_, ok, err := d.Dispatch(t.Context(), envelope.OpHybridScore, envelope.HybridScoreInput{
		PatternKeywords: []string{"a"}, ContextKeywords: []string{"a"},
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDispatcherUnknownOperationNotOK(t *testing.T) {
	d := NewDispatcher(Deps{})
	_, ok, err := d.Dispatch(t.Context(), envelope.OperationType("not_real"), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHybridScoreHandlerPureComputation(t *testing.T) {
	h := &HybridScoreHandler{}
	result, err := h.Execute(t.Context(), envelope.HybridScoreInput{
		PatternKeywords: []string{"cache", "lru"},
		ContextKeywords: []string{"cache", "ttl"},
	})
	require.NoError(t, err)
	assert.False(t, result.PartialResults)
	assert.Contains(t, result.Data, "hybrid_score")
	assert.Contains(t, result.Data, "confidence")
}

func TestHybridScoreHandlerResolvesPatternIDFromStore(t *testing.T) {
	h := &HybridScoreHandler{deps: Deps{Stores: store.Stores{Patterns: fakePatternStore{
		patterns: []store.Pattern{{ID: "p1", Keywords: []string{"cache", "lru"}}},
	}}}}
	result, err := h.Execute(t.Context(), envelope.HybridScoreInput{
		PatternID:       "p1",
		ContextKeywords: []string{"cache", "lru"},
	})
	require.NoError(t, err)
	assert.False(t, result.PartialResults)
	breakdown := result.Data["breakdown"].(map[string]float64)
	assert.Equal(t, 1.0, breakdown["keyword"])
}

func TestComprehensiveAnalysisDegradesOnEmbedderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entities":["x"],"confidence":0.8}`))
	}))
	defer srv.Close()

	c := cache.New(10, time.Minute)
	b := breaker.New(breaker.DefaultConfig())
	analyzerClient := analyzer.New(srv.URL, time.Second, nil, c, b)

	embSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer embSrv.Close()
	embedderClient := embedder.New(embedder.Config{BaseURL: embSrv.URL, Timeout: time.Second, InternalRetries: 1}, nil)

	h := &ComprehensiveAnalysisHandler{deps: Deps{Analyzer: analyzerClient, Embedder: embedderClient}}
	result, err := h.Execute(t.Context(), envelope.ComprehensiveAnalysisInput{
		SourcePath:       "a.go",
		Content:          "package a",
		IncludeEmbedding: true,
	})
	require.NoError(t, err)
	assert.True(t, result.PartialResults)
	assert.NotEmpty(t, result.DegradedReasons)
}

func TestOneXComplianceUnsupportedLanguageIsTerminal(t *testing.T) {
	h := &OneXComplianceHandler{}
	_, err := h.Execute(t.Context(), envelope.OneXComplianceInput{SourcePath: "a", RuleSet: "cobol"})
	require.Error(t, err)
	classified := retryclassifier.Classify(err)
	assert.Equal(t, retryclassifier.ClassUnsupportedLanguage, classified.Class)
	assert.False(t, classified.Retryable)
}

func TestPatternExtractionPropagatesStoreError(t *testing.T) {
	h := &PatternExtractionHandler{deps: Deps{Stores: store.Stores{Patterns: fakePatternStore{err: errors.New("db down")}}}}
	_, err := h.Execute(t.Context(), envelope.PatternExtractionInput{})
	require.Error(t, err)
}

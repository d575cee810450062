package analyzer

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-labs/intelligence-engine/internal/breaker"
	"github.com/archon-labs/intelligence-engine/internal/cache"
	"github.com/archon-labs/intelligence-engine/internal/retryclassifier"
)

func TestAnalyzeCacheHitSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{"entities":["a"],"confidence":0.9}`))
	}))
	defer srv.Close()

	c := cache.New(10, time.Minute)
	b := breaker.New(breaker.DefaultConfig())
	client := New(srv.URL, time.Second, nil, c, b)

	first, err := client.Analyze(t.Context(), "hello", "")
	require.NoError(t, err)
	assert.True(t, called)

	called = false
	second, err := client.Analyze(t.Context(), "hello", "")
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, first.Entities, second.Entities)
}

func TestAnalyzeCircuitBreakerOpenSkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := cache.New(10, time.Minute)
	b := breaker.New(breaker.Config{FailureThreshold: 1, ResetTimeout: time.Minute})
	client := New(srv.URL, time.Second, nil, c, b)

	_, err := client.Analyze(t.Context(), "content-1", "")
	require.Error(t, err)
	var classified *retryclassifier.ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, retryclassifier.ClassExternalService, classified.Class)

	_, err = client.Analyze(t.Context(), "content-2", "")
	require.Error(t, err)
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, retryclassifier.ClassCircuitBreakerOpen, classified.Class)
	assert.Equal(t, 1, calls)
}

func TestAnalyzeMalformedResponseNotCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"confidence": 5}`))
	}))
	defer srv.Close()

	c := cache.New(10, time.Minute)
	b := breaker.New(breaker.DefaultConfig())
	client := New(srv.URL, time.Second, nil, c, b)

	_, err := client.Analyze(t.Context(), "x", "")
	require.Error(t, err)

	_, hit := c.Get(cacheKey("x", ""))
	assert.False(t, hit)
}

// Package analyzer implements C4: a timeout-bounded client for the
// external analyzer, wrapping cache lookup (C2) and breaker admission
// (C3) around pkg/httpclient's ObservableClient. Grounded on
// pkg/httpclient/observableclient.go (trace/metric-instrumented HTTP) and
// pkg/httpclient/request.go's generic MakeRequest[TSuccess, TError].
package analyzer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/archon-labs/intelligence-engine/internal/breaker"
	"github.com/archon-labs/intelligence-engine/internal/cache"
	"github.com/archon-labs/intelligence-engine/internal/corrctx"
	"github.com/archon-labs/intelligence-engine/internal/retryclassifier"
	"github.com/archon-labs/intelligence-engine/pkg/httpclient"
)

// Request is the analyzer call payload, shared by /analyze/semantic and
// /extract/document per spec §6.
type Request struct {
	Content string         `json:"content"`
	Context string         `json:"context,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Result is the validated analyzer response.
type Result struct {
	Entities   []string           `json:"entities"`
	Vector     []float64          `json:"vector,omitempty"`
	Confidence float64            `json:"confidence"`
	Metadata   map[string]string  `json:"metadata,omitempty"`
}

func (r Result) valid() bool {
	return r.Confidence >= 0 && r.Confidence <= 1
}

type errorBody struct {
	Message string `json:"message"`
}

// Client wraps the external analyzer with cache, breaker, and timeout.
type Client struct {
	httpClient httpclient.HTTPClient
	baseURL    string
	timeout    time.Duration
	cache      *cache.Cache
	breaker    *breaker.Breaker
}

// New constructs an analyzer Client. cache and breaker are required
// collaborators, not globals, per spec §9's "make them constructor
// parameters" re-architecture note.
func New(baseURL string, timeout time.Duration, httpClient httpclient.HTTPClient, resultCache *cache.Cache, cb *breaker.Breaker) *Client {
	if httpClient == nil {
		httpClient = httpclient.NewHTTPClientWithTimeout(timeout)
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, timeout: timeout, cache: resultCache, breaker: cb}
}

// Analyze performs /analyze/semantic. On cache hit, returns immediately
// without touching the breaker or network. On breaker-open, returns a
// circuit_breaker_open classified error without network I/O. Validated
// responses are cached; malformed ones are not.
func (c *Client) Analyze(ctx context.Context, content, analysisContext string) (Result, error) {
	key := cacheKey(content, analysisContext)

	if entry, ok := c.cache.Get(key); ok {
		return entryToResult(entry), nil
	}

	var result Result
	attemptErr := c.breaker.Attempt(func() error {
		r, err := c.call(ctx, "/analyze/semantic", Request{Content: content, Context: analysisContext})
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	if attemptErr != nil {
		if attemptErr == breaker.ErrOpen {
			return Result{}, retryclassifier.WithClass(retryclassifier.ClassCircuitBreakerOpen, attemptErr)
		}
		return Result{}, attemptErr // already classified by c.call
	}

	if !result.valid() {
		return Result{}, retryclassifier.WithClass(retryclassifier.ClassExternalService, fmt.Errorf("analyzer returned malformed response"))
	}

	c.cache.Put(key, resultToEntry(result))
	return result, nil
}

// ExtractDocument performs /extract/document, following the same
// cache/breaker/timeout contract as Analyze but keyed separately since
// the two endpoints are not interchangeable.
func (c *Client) ExtractDocument(ctx context.Context, content string) (Result, error) {
	key := "extract:" + cacheKey(content, "")
	if entry, ok := c.cache.Get(key); ok {
		return entryToResult(entry), nil
	}

	var result Result
	attemptErr := c.breaker.Attempt(func() error {
		r, err := c.call(ctx, "/extract/document", Request{Content: content})
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if attemptErr != nil {
		if attemptErr == breaker.ErrOpen {
			return Result{}, retryclassifier.WithClass(retryclassifier.ClassCircuitBreakerOpen, attemptErr)
		}
		return Result{}, attemptErr
	}
	if !result.valid() {
		return Result{}, retryclassifier.WithClass(retryclassifier.ClassExternalService, fmt.Errorf("analyzer returned malformed response"))
	}
	c.cache.Put(key, resultToEntry(result))
	return result, nil
}

func (c *Client) call(ctx context.Context, path string, reqBody Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, retryclassifier.WithClass(retryclassifier.ClassInternalError, err)
	}

	headers := map[string]string{
		"Content-Type":       "application/json",
		corrctx.HeaderName:   corrctx.From(ctx),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Result{}, retryclassifier.WithClass(retryclassifier.ClassInternalError, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, retryclassifier.WithClass(retryclassifier.ClassTimeout, err)
		}
		return Result{}, retryclassifier.WithClass(retryclassifier.ClassExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Result{}, retryclassifier.WithClass(retryclassifier.ClassExternalService, fmt.Errorf("analyzer returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		var errBody errorBody
		if decErr := json.NewDecoder(resp.Body).Decode(&errBody); decErr != nil {
			return Result{}, retryclassifier.WithClass(retryclassifier.ClassParsingError, decErr)
		}
		return Result{}, retryclassifier.WithClass(retryclassifier.ClassParsingError, fmt.Errorf("analyzer: %s", errBody.Message))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, retryclassifier.WithClass(retryclassifier.ClassParsingError, err)
	}
	return result, nil
}

func cacheKey(content, analysisContext string) string {
	h := sha256.Sum256([]byte(content + "\x00" + analysisContext))
	return hex.EncodeToString(h[:])
}

func resultToEntry(r Result) cache.Entry {
	return cache.Entry{Vector: r.Vector, Entities: r.Entities, Confidence: r.Confidence, Metadata: r.Metadata, CreatedAt: time.Now()}
}

func entryToResult(e cache.Entry) Result {
	return Result{Vector: e.Vector, Entities: e.Entities, Metadata: e.Metadata, Confidence: e.Confidence}
}

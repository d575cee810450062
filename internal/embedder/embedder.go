// Package embedder implements C5: a rate-limited, batched embedding
// client. Grounded on pkg/httpclient's generic MakeRequest and the
// semaphore-gated concurrency pattern the teacher applies to worker
// pools (pkg/consumer/lifecycle.go's bounded worker slots), generalized
// here to bound outgoing embedder requests instead of message workers,
// using golang.org/x/sync/semaphore for the bound rather than a raw
// channel so Acquire observes ctx cancellation natively.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/archon-labs/intelligence-engine/internal/retryclassifier"
	"github.com/archon-labs/intelligence-engine/pkg/httpclient"
)

// Config tunes batching, concurrency and retry behavior.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxConcurrent int
	MaxBatchSize  int
	InternalRetries int // small retry bound independent of the top-level retry subsystem
}

// Client embeds texts via the external embedder service.
type Client struct {
	cfg        Config
	httpClient httpclient.HTTPClient
	sem        *semaphore.Weighted
}

// New constructs an embedder Client with a bounded semaphore capping
// concurrent outgoing requests per spec §4.5(a).
func New(cfg Config, httpClient httpclient.HTTPClient) *Client {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 32
	}
	if httpClient == nil {
		httpClient = httpclient.NewHTTPClientWithTimeout(cfg.Timeout)
	}
	return &Client{cfg: cfg, httpClient: httpClient, sem: semaphore.NewWeighted(int64(cfg.MaxConcurrent))}
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Vectors [][]float64 `json:"vectors"`
}

// Embed returns one vector per input text, in the same order. Inputs
// beyond MaxBatchSize are split into sequential sub-batches; each
// sub-batch independently acquires a semaphore slot.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.MaxBatchSize {
		end := start + c.cfg.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batchVectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batchVectors...)
	}
	return vectors, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, retryclassifier.WithClass(retryclassifier.ClassTimeout, err)
	}
	defer c.sem.Release(1)

	var lastErr error
	attempts := c.cfg.InternalRetries
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		vectors, err := c.doRequest(ctx, texts)
		if err == nil {
			if len(vectors) != len(texts) {
				return nil, retryclassifier.WithClass(retryclassifier.ClassExternalService,
					fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), len(texts)))
			}
			return vectors, nil
		}
		lastErr = err
		var classified *retryclassifier.ClassifiedError
		if ce, ok := err.(*retryclassifier.ClassifiedError); ok {
			classified = ce
		}
		if classified != nil && !classified.Retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, texts []string) ([][]float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeoutOrDefault())
	defer cancel()

	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, retryclassifier.WithClass(retryclassifier.ClassInternalError, err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, retryclassifier.WithClass(retryclassifier.ClassInternalError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if callCtx.Err() != nil {
			return nil, retryclassifier.WithClass(retryclassifier.ClassTimeout, err)
		}
		return nil, retryclassifier.WithClass(retryclassifier.ClassExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, retryclassifier.WithClass(retryclassifier.ClassRateLimitExceeded, fmt.Errorf("embedder rate limited"))
	}
	if resp.StatusCode >= 500 {
		return nil, retryclassifier.WithClass(retryclassifier.ClassExternalService, fmt.Errorf("embedder returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, retryclassifier.WithClass(retryclassifier.ClassParsingError, fmt.Errorf("embedder returned %d", resp.StatusCode))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, retryclassifier.WithClass(retryclassifier.ClassParsingError, err)
	}
	return out.Vectors, nil
}

func (c *Client) timeoutOrDefault() time.Duration {
	if c.cfg.Timeout > 0 {
		return c.cfg.Timeout
	}
	return 10 * time.Second
}

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/config"
	"github.com/jobhunter/jobhunter/internal/utils"
)

// sleep is swapped out in tests so retry behavior can be asserted without
// waiting out real backoff delays.
var sleep = time.Sleep

// OpenAI talks to an OpenAI-compatible /v1/embeddings endpoint. Requests that
// hit the provider's rate limit are retried with bounded exponential backoff
// and jitter; any other failure is surfaced immediately.
type OpenAI struct {
	endpoint       string
	model          string
	apiKey         string
	maxChars       int
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *zap.Logger

	HTTPClient *http.Client
}

func NewOpenAI(cfg config.Embedding, apiKey string, logger *zap.Logger) *OpenAI {
	return &OpenAI{
		endpoint:       cfg.Endpoint,
		model:          cfg.Model,
		apiKey:         apiKey,
		maxChars:       cfg.MaxChars,
		maxRetries:     5,
		initialBackoff: time.Second,
		maxBackoff:     60 * time.Second,
		logger:         logger,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// openaiDimensions maps known OpenAI embedding models to their vector
// length. Unknown models fall back to the small-model size.
var openaiDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

func (o *OpenAI) Dimensions() int {
	if d, ok := openaiDimensions[o.model]; ok {
		return d
	}
	return 1536
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if truncated := utils.Truncate(text, o.maxChars); o.maxChars > 0 && truncated != text {
		o.logger.Debug("truncating text for embedding",
			zap.Int("original_length", len(text)),
			zap.Int("max_chars", o.maxChars),
		)
		text = truncated
	}

	backoff := o.initialBackoff
	for attempt := 0; ; attempt++ {
		vec, retryable, err := o.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}

		if !retryable || attempt >= o.maxRetries {
			return nil, err
		}

		wait := backoff + jitter(backoff)
		if wait > o.maxBackoff {
			wait = o.maxBackoff
		}

		o.logger.Warn("embedding provider rate limited, backing off",
			zap.Duration("wait", wait),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", o.maxRetries),
		)
		sleep(wait)
		backoff *= 2
	}
}

func (o *OpenAI) embedOnce(ctx context.Context, text string) (vec []float32, retryable bool, err error) {
	body, err := json.Marshal(embeddingRequest{Model: o.model, Input: text})
	if err != nil {
		return nil, false, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read embedding response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("embedding provider rate limited: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("embedding provider bad status: %s", resp.Status)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false, fmt.Errorf("unmarshal embedding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, false, fmt.Errorf("embedding provider returned no vectors")
	}

	return parsed.Data[0].Embedding, false, nil
}

// jitter desynchronizes concurrent retriers by adding a small random fraction
// of the current backoff.
func jitter(backoff time.Duration) time.Duration {
	return time.Duration(rand.Float64() * 0.1 * float64(backoff))
}

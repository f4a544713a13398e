// Package jsearch is a client for the JSearch-style job search API. All page
// fetches, concurrent or not, share one token bucket so the aggregate request
// rate honors the provider's limit; per-request 429 handling runs the bounded
// exponential backoff on top of it.
package jsearch

import (
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jobhunter/jobhunter/internal/config"
)

const userAgent = "jobhunter (job search pipeline)"

// sleep is swapped out in tests to assert backoff without real delays.
var sleep = time.Sleep

type Client struct {
	apiKey  string
	apiHost string
	logger  *zap.Logger
	limiter *rate.Limiter

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(cfg config.Search, rl config.RateLimit, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		apiKey:         apiKey,
		apiHost:        cfg.APIHost,
		logger:         logger,
		limiter:        rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), 1),
		maxRetries:     rl.MaxRetries,
		initialBackoff: rl.InitialBackoff,
		maxBackoff:     rl.MaxBackoff,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: userAgent,
		APIURL:    cfg.APIURL,
	}
}

// jitter desynchronizes concurrent retriers by adding a small random fraction
// of the current backoff.
func jitter(backoff time.Duration) time.Duration {
	return time.Duration(rand.Float64() * 0.1 * float64(backoff))
}

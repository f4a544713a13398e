package jsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/jobs"
)

// SearchParams describes one page request against the search API.
type SearchParams struct {
	Term         string
	Page         int
	PagesPerCall int
	Country      string
	DatePosted   string
	RemoteOnly   bool
}

func (p *SearchParams) values() url.Values {
	q := url.Values{}
	q.Set("query", p.Term)
	q.Set("page", strconv.Itoa(p.Page))

	if p.PagesPerCall > 0 {
		q.Set("num_pages", strconv.Itoa(p.PagesPerCall))
	}
	if p.Country != "" {
		q.Set("country", p.Country)
	}
	if p.DatePosted != "" {
		q.Set("date_posted", p.DatePosted)
	}
	if p.RemoteOnly {
		q.Set("remote_jobs_only", "true")
	}

	return q
}

// NoResultsError reports that the API answered with zero results for the
// given parameters, so callers can tell "no jobs exist" from "request failed".
type NoResultsError struct {
	Term string
	Page int
}

func (e *NoResultsError) Error() string {
	return fmt.Sprintf("no results for %q (page %d)", e.Term, e.Page)
}

// RateLimitError reports that the retry budget was exhausted on HTTP 429.
type RateLimitError struct {
	Term     string
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited searching %q: gave up after %d attempts", e.Term, e.Attempts)
}

type searchResponse struct {
	Status string            `json:"status"`
	Data   []jobs.RawPosting `json:"data"`
}

// errRateLimited marks a single throttled attempt inside the retry loop.
type errRateLimited struct{ status string }

func (e *errRateLimited) Error() string { return "rate limited: " + e.status }

// Search fetches one page of postings. HTTP 429 is retried with
// min(backoff·2^attempt + jitter, maxBackoff) sleeps until the retry budget
// is spent; every other failure (bad status, malformed body) is terminal on
// the first occurrence.
func (c *Client) Search(ctx context.Context, params *SearchParams) ([]jobs.RawPosting, error) {
	q := params.values()

	backoff := c.initialBackoff
	for attempt := 0; ; attempt++ {
		// The shared token bucket throttles the steady-state request rate
		// across every worker, independent of retry state.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		postings, err := c.searchOnce(ctx, q)
		if err == nil {
			if len(postings) == 0 {
				return nil, &NoResultsError{Term: params.Term, Page: params.Page}
			}
			return postings, nil
		}

		var limited *errRateLimited
		if !errors.As(err, &limited) {
			return nil, err
		}

		if attempt >= c.maxRetries {
			c.logger.Warn("retry budget exhausted",
				zap.String("term", params.Term),
				zap.Int("page", params.Page),
				zap.Int("attempts", attempt+1),
			)
			return nil, &RateLimitError{Term: params.Term, Attempts: attempt + 1}
		}

		wait := backoff + jitter(backoff)
		if wait > c.maxBackoff {
			wait = c.maxBackoff
		}

		c.logger.Warn("search API rate limited, backing off",
			zap.String("term", params.Term),
			zap.Int("page", params.Page),
			zap.Duration("wait", wait),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.maxRetries),
		)
		sleep(wait)
		backoff *= 2
	}
}

func (c *Client) searchOnce(ctx context.Context, q url.Values) ([]jobs.RawPosting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)
	req.Header.Set("User-Agent", c.UserAgent)
	req.URL.RawQuery = q.Encode()

	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &errRateLimited{status: resp.Status}
	}
	if resp.StatusCode != http.StatusOK {
		// Not transient, no retry.
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// A malformed body will not fix itself.
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	return parsed.Data, nil
}

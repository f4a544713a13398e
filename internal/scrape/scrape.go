// Package scrape fetches job posting pages and reduces them to plain text,
// used to backfill descriptions the search API returned empty.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/utils"
)

const (
	// maxBodyBytes bounds how much of a response is read before parsing.
	maxBodyBytes = 2 << 20

	// maxTextLen bounds the extracted text handed downstream.
	maxTextLen = 50_000
)

// chromeSelector matches the boilerplate elements stripped before extraction.
const chromeSelector = "script, style, nav, header, footer, noscript, iframe"

// Fetcher downloads posting pages over HTTP.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger

	UserAgent string
}

func New(logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger:    logger,
		UserAgent: "jobhunter (job search pipeline)",
	}
}

// Text fetches url and returns its visible text with page chrome removed and
// whitespace collapsed to single spaces.
func (f *Fetcher) Text(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: bad status: %s", url, resp.Status)
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)
	text, err := ExtractText(body)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", url, err)
	}

	f.logger.Debug("fetched posting page",
		zap.String("url", url),
		zap.Int("text_len", len(text)),
		zap.String("preview", utils.TruncateForLog(text, 120)),
	)

	return text, nil
}

// ExtractText parses HTML and returns the body text with scripts, styles and
// navigation chrome removed.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find(chromeSelector).Remove()

	text := strings.TrimSpace(doc.Find("body").Text())
	text = strings.Join(strings.Fields(text), " ")

	return utils.Truncate(text, maxTextLen), nil
}

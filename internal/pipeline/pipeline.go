// Package pipeline wires the extract, transform and load stages together.
// Each stage reads its input from staging and writes its output back there,
// so any stage can be re-run on its own after a failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/config"
	"github.com/jobhunter/jobhunter/internal/jobs"
	"github.com/jobhunter/jobhunter/internal/jsearch"
	"github.com/jobhunter/jobhunter/internal/staging"
	"github.com/jobhunter/jobhunter/internal/store"
	"github.com/jobhunter/jobhunter/internal/transform"
)

// Report summarizes one full pipeline run.
type Report struct {
	RunID             string
	Found             int
	Inserted          int
	DuplicatesSkipped int
	EmptySearches     int
	Elapsed           time.Duration
}

type Pipeline struct {
	cfg         *config.Config
	logger      *zap.Logger
	client      *jsearch.Client
	staging     *staging.Store
	transformer *transform.Transformer
	loader      *store.Loader

	runID string
}

func New(
	cfg *config.Config,
	client *jsearch.Client,
	stage *staging.Store,
	transformer *transform.Transformer,
	loader *store.Loader,
	logger *zap.Logger,
) *Pipeline {
	runID := uuid.NewString()
	return &Pipeline{
		cfg:         cfg,
		logger:      logger.With(zap.String("run_id", runID)),
		client:      client,
		staging:     stage,
		transformer: transformer,
		loader:      loader,
		runID:       runID,
	}
}

func (p *Pipeline) RunID() string { return p.runID }

// pageJob is one unit of extraction work: a single page of a single term.
type pageJob struct {
	term string
	page int
}

// Extract fetches every configured term and page through a bounded worker
// pool and stages each fetched batch immediately. All workers draw from the
// client's shared token bucket, so concurrency never multiplies the request
// rate. A term page with zero results is counted and skipped; a terminal
// error (retry budget spent, hard API failure) cancels the remaining work
// and is returned.
func (p *Pipeline) Extract(ctx context.Context) (found, misses int, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := p.staging.EnsureDirs(); err != nil {
		return 0, 0, err
	}

	pages := make(chan pageJob)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for range p.cfg.RateLimit.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range pages {
				postings, err := p.client.Search(ctx, &jsearch.SearchParams{
					Term:         job.term,
					Page:         job.page,
					PagesPerCall: p.cfg.Search.PagesPerCall,
					Country:      p.cfg.Search.Country,
					DatePosted:   p.cfg.Search.DatePosted,
					RemoteOnly:   p.cfg.Search.RemoteOnly,
				})

				var noResults *jsearch.NoResultsError
				switch {
				case errors.As(err, &noResults):
					p.logger.Info("no results",
						zap.String("term", job.term), zap.Int("page", job.page))
					mu.Lock()
					misses++
					mu.Unlock()
					continue
				case errors.Is(err, context.Canceled):
					return
				case err != nil:
					fail(fmt.Errorf("search %q page %d: %w", job.term, job.page, err))
					return
				}

				if _, err := p.staging.StageRaw("jsearch", postings); err != nil {
					fail(err)
					return
				}

				mu.Lock()
				found += len(postings)
				mu.Unlock()

				p.logger.Info("extracted page",
					zap.String("term", job.term),
					zap.Int("page", job.page),
					zap.Int("postings", len(postings)),
				)
			}
		}()
	}

	for _, term := range p.cfg.Search.Terms {
		for page := 0; page < p.cfg.Search.Pages; page++ {
			select {
			case pages <- pageJob{term: term, page: page}:
			case <-ctx.Done():
			}
		}
	}
	close(pages)
	wg.Wait()

	if firstErr != nil {
		return found, misses, firstErr
	}
	// Only a caller-side cancellation can still be pending here.
	if err := ctx.Err(); err != nil {
		return found, misses, err
	}

	p.logger.Info("extraction finished",
		zap.Int("found", found), zap.Int("empty_pages", misses))
	return found, misses, nil
}

// Transform normalizes the staged raw batch. The résumé is optional: when
// the configured file is missing, postings are processed without a
// similarity score.
func (p *Pipeline) Transform(ctx context.Context) ([]jobs.RawPosting, []transform.Step, error) {
	resume := p.ResumeText()
	return p.transformer.Run(ctx, resume)
}

// Load drains processed staging into the database.
func (p *Pipeline) Load(ctx context.Context) (inserted, skipped int, err error) {
	return p.loader.Load(ctx)
}

// Run executes extract, transform and load back to back.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: p.runID}

	found, misses, err := p.Extract(ctx)
	if err != nil {
		return report, err
	}
	report.Found = found
	report.EmptySearches = misses

	if _, _, err := p.Transform(ctx); err != nil {
		return report, err
	}

	inserted, skipped, err := p.Load(ctx)
	if err != nil {
		return report, err
	}
	report.Inserted = inserted
	report.DuplicatesSkipped = skipped
	report.Elapsed = time.Since(start).Round(time.Millisecond)

	p.logger.Info("run finished",
		zap.Int("found", report.Found),
		zap.Int("inserted", report.Inserted),
		zap.Int("duplicates_skipped", report.DuplicatesSkipped),
		zap.Duration("elapsed", report.Elapsed),
	)

	return report, nil
}

// ResumeText reads the configured résumé file. A missing or unreadable file
// disables similarity scoring instead of failing the run.
func (p *Pipeline) ResumeText() string {
	if p.cfg.Resume.File == "" {
		return ""
	}

	data, err := os.ReadFile(p.cfg.Resume.File)
	if err != nil {
		p.logger.Warn("resume file unreadable, skipping similarity scoring",
			zap.String("file", p.cfg.Resume.File), zap.Error(err))
		return ""
	}

	return string(data)
}

// Package transform turns staged raw postings into normalized records ready
// for loading. The steps run in a fixed order; each one reports how many
// records it started with, dropped and left, so a run log reads as a funnel.
package transform

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/jobs"
	"github.com/jobhunter/jobhunter/internal/salary"
	"github.com/jobhunter/jobhunter/internal/similarity"
	"github.com/jobhunter/jobhunter/internal/staging"
)

// Step describes the result of one transform step.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

// DescriptionFetcher backfills descriptions the search API returned empty.
type DescriptionFetcher interface {
	Text(ctx context.Context, url string) (string, error)
}

// Scorer rates a posting's description against the résumé.
type Scorer interface {
	Score(ctx context.Context, text1, text2 string) similarity.Result
}

type Transformer struct {
	fetcher DescriptionFetcher
	scorer  Scorer
	store   *staging.Store
	logger  *zap.Logger
}

func New(fetcher DescriptionFetcher, scorer Scorer, store *staging.Store, logger *zap.Logger) *Transformer {
	return &Transformer{
		fetcher: fetcher,
		scorer:  scorer,
		store:   store,
		logger:  logger,
	}
}

// Run loads the raw staging batch, normalizes it and writes the result to
// processed staging. resumeText may be empty, in which case the similarity
// step is skipped and postings carry no score.
func (t *Transformer) Run(ctx context.Context, resumeText string) ([]jobs.RawPosting, []Step, error) {
	postings, err := t.store.LoadRaw()
	if err != nil {
		return nil, nil, fmt.Errorf("load raw staging: %w", err)
	}

	var steps []Step
	record := func(name string, initial, left int) {
		step := Step{Name: name, Initial: initial, Dropped: initial - left, Left: left}
		steps = append(steps, step)
		t.logger.Info("transform step",
			zap.String("name", step.Name),
			zap.Int("initial", step.Initial),
			zap.Int("dropped", step.Dropped),
			zap.Int("left", step.Left),
		)
	}

	initial := len(postings)

	for _, p := range postings {
		p.DropNoise()
	}
	record("drop noise", initial, len(postings))

	postings, err = dedup(postings)
	if err != nil {
		return nil, steps, err
	}
	record("dedup", initial, len(postings))

	for _, p := range postings {
		p.Rename()
		p.LowercaseFields("title", "location", "company")
	}
	record("normalize fields", len(postings), len(postings))

	t.fillDescriptions(ctx, postings)
	record("fill descriptions", len(postings), len(postings))

	for _, p := range postings {
		t.parseSalary(p)
	}
	record("parse salary", len(postings), len(postings))

	if resumeText != "" {
		for _, p := range postings {
			result := t.scorer.Score(ctx, resumeText, p.GetString("description"))
			p["resume_similarity"] = result.Float()
		}
	}
	record("score similarity", len(postings), len(postings))

	for _, p := range postings {
		p["primary_key"] = jobs.PrimaryKey(p.GetString("company"), p.GetString("title"))
	}

	if _, err := t.store.StageProcessed("transformed", postings); err != nil {
		return nil, steps, fmt.Errorf("stage processed batch: %w", err)
	}

	return postings, steps, nil
}

// dedup drops structural duplicates, keeping the first occurrence. Running it
// over an already-deduplicated batch is a no-op.
func dedup(postings []jobs.RawPosting) ([]jobs.RawPosting, error) {
	seen := make(map[string]struct{}, len(postings))
	out := postings[:0]

	for _, p := range postings {
		fp, err := p.Fingerprint()
		if err != nil {
			return nil, fmt.Errorf("fingerprint posting: %w", err)
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, p)
	}

	return out, nil
}

// fillDescriptions fetches the posting page for records with an empty
// description. A fetch failure leaves the description empty and the batch
// moving; one unreachable page must not stall the run.
func (t *Transformer) fillDescriptions(ctx context.Context, postings []jobs.RawPosting) {
	for _, p := range postings {
		if p.GetString("description") != "" {
			continue
		}

		url := p.GetString("apply_link")
		if url == "" {
			url = p.GetString("job_url")
		}
		if url == "" {
			p["description"] = ""
			continue
		}

		text, err := t.fetcher.Text(ctx, url)
		if err != nil {
			t.logger.Warn("description fetch failed",
				zap.String("url", url), zap.Error(err))
			p["description"] = ""
			continue
		}
		p["description"] = text
	}
}

// parseSalary derives salary bounds from the description text when the source
// did not report them.
func (t *Transformer) parseSalary(p jobs.RawPosting) {
	if p["salary_low"] != nil || p["salary_high"] != nil {
		return
	}

	low, high := salary.Parse(p.GetString("description"))
	if low != nil {
		p["salary_low"] = *low
	}
	if high != nil {
		p["salary_high"] = *high
	}
}

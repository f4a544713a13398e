package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/embedding"
	"github.com/jobhunter/jobhunter/internal/jobs"
	"github.com/jobhunter/jobhunter/internal/staging"
)

// Loader drains the processed staging batch into the store. Each record is
// handled independently: a failure or duplicate skips that record and the
// batch keeps moving, so re-running a partially loaded batch only fills the
// gaps.
type Loader struct {
	store    JobStore
	staging  *staging.Store
	provider embedding.Provider
	logger   *zap.Logger
}

func NewLoader(store JobStore, stage *staging.Store, provider embedding.Provider, logger *zap.Logger) *Loader {
	return &Loader{
		store:    store,
		staging:  stage,
		provider: provider,
		logger:   logger,
	}
}

// Load persists every processed posting that is not already stored. It
// returns how many records were inserted and how many were skipped as
// duplicates or unusable.
func (l *Loader) Load(ctx context.Context) (inserted, skipped int, err error) {
	postings, err := l.staging.LoadProcessed()
	if err != nil {
		return 0, 0, fmt.Errorf("load processed staging: %w", err)
	}

	for _, raw := range postings {
		record, err := jobs.Decode(raw)
		if err != nil {
			l.logger.Warn("skipping undecodable posting", zap.Error(err))
			skipped++
			continue
		}

		if record.Company == "" || record.Title == "" {
			l.logger.Warn("skipping posting without company or title",
				zap.String("title", record.Title),
				zap.String("company", record.Company),
			)
			skipped++
			continue
		}

		if record.PrimaryKey == "" {
			record.PrimaryKey = jobs.PrimaryKey(record.Company, record.Title)
		}

		exists, err := l.store.Exists(ctx, record.PrimaryKey)
		if err != nil {
			return inserted, skipped, err
		}
		if exists {
			l.logger.Debug("posting already stored",
				zap.String("primary_key", record.PrimaryKey))
			skipped++
			continue
		}

		job := &jobs.PersistedJob{NormalizedPosting: *record}
		job.Embedding = l.embed(ctx, record)

		if err := l.store.Insert(ctx, job); err != nil {
			return inserted, skipped, err
		}
		inserted++

		l.logger.Info("stored posting",
			zap.String("primary_key", record.PrimaryKey))
	}

	return inserted, skipped, nil
}

// embed caches the posting's embedding on the row so queries never have to
// recompute it. An embedding failure degrades to a row without a vector.
func (l *Loader) embed(ctx context.Context, record *jobs.NormalizedPosting) []float32 {
	if l.provider == nil {
		return nil
	}

	vec, err := l.provider.Embed(ctx, record.Description+record.Title)
	if err != nil {
		l.logger.Warn("embedding posting failed, storing without vector",
			zap.String("primary_key", record.PrimaryKey),
			zap.Error(err),
		)
		return nil
	}

	return vec
}

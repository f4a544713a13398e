// Package similarity scores how closely two text blobs relate by comparing
// their semantic embeddings.
package similarity

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/embedding"
	"github.com/jobhunter/jobhunter/internal/utils"
)

// Result is a tagged similarity score. Scored=false means the score could not
// be computed (provider failure or degenerate vector) as opposed to a genuine
// zero relevance, so callers can exclude unscored postings instead of
// silently ranking them last.
type Result struct {
	Value  float64
	Scored bool
}

func Scored(v float64) Result {
	return Result{Value: v, Scored: true}
}

func Unscored() Result {
	return Result{}
}

// Float flattens the result to the legacy scalar: unscored collapses to 0.0,
// indistinguishable from genuine dissimilarity. Kept for persistence
// compatibility; prefer inspecting Scored.
func (r Result) Float() float64 {
	if !r.Scored {
		return 0.0
	}
	return r.Value
}

// Scorer computes résumé-to-posting similarity through an embedding provider.
type Scorer struct {
	provider embedding.Provider
	delay    time.Duration
	logger   *zap.Logger
}

// New returns a scorer. delay is inserted between the two embedding calls to
// stay under the provider's own rate limit; it is a throttling knob, not a
// correctness requirement.
func New(provider embedding.Provider, delay time.Duration, logger *zap.Logger) *Scorer {
	return &Scorer{
		provider: provider,
		delay:    delay,
		logger:   logger,
	}
}

// Score embeds both texts and returns their cosine similarity. Provider
// errors and zero vectors yield an unscored result rather than an error.
func (s *Scorer) Score(ctx context.Context, text1, text2 string) Result {
	if s.provider == nil {
		return Unscored()
	}

	vec1, err := s.provider.Embed(ctx, text1)
	if err != nil {
		s.logger.Warn("embedding first text failed", zap.Error(err))
		return Unscored()
	}

	if err := utils.WaitFor(ctx, s.delay); err != nil {
		return Unscored()
	}

	vec2, err := s.provider.Embed(ctx, text2)
	if err != nil {
		s.logger.Warn("embedding second text failed", zap.Error(err))
		return Unscored()
	}

	if embedding.IsZero(vec1) || embedding.IsZero(vec2) {
		s.logger.Warn("embedding provider returned a degenerate vector")
		return Unscored()
	}

	return Scored(Cosine(vec1, vec2))
}

// Cosine returns the cosine similarity of two vectors. Mismatched lengths and
// zero-magnitude vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

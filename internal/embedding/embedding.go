// Package embedding turns text into fixed-length semantic vectors via an
// external provider.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/config"
)

// Provider produces one embedding vector per text. Implementations are safe
// for concurrent use. Dimensions reports the vector length the provider's
// model produces; the store sizes its vector column from it.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// New builds the provider selected by the configuration.
func New(ctx context.Context, cfg config.Embedding, apiKey string, logger *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg, apiKey, logger), nil
	case "gemini":
		return NewGemini(ctx, apiKey, cfg.Model, logger)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// IsZero reports whether the vector is absent or degenerate (all zeros).
// Providers return such vectors when generation silently fails.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

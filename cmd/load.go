package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load processed postings into the database",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, cfg := setup()

		p, pg := buildPipeline(ctx, cfg, logger)

		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("preparing database schema", zap.Error(err))
		}

		inserted, skipped, err := p.Load(ctx)
		if err != nil {
			logger.Fatal("loading failed", zap.Error(err))
		}

		fmt.Printf("loaded %d posting(s), skipped %d\n", inserted, skipped)
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

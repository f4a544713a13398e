package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Fetch postings from the search API into raw staging",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, cfg := setup()

		p, _ := buildPipeline(ctx, cfg, logger)

		found, misses, err := p.Extract(ctx)
		if err != nil {
			logger.Fatal("extraction failed", zap.Error(err))
		}

		fmt.Printf("extracted %d posting(s), %d empty search page(s)\n", found, misses)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

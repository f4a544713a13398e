package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Normalize staged raw postings into processed staging",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, cfg := setup()

		p, _ := buildPipeline(ctx, cfg, logger)

		postings, steps, err := p.Transform(ctx)
		if err != nil {
			logger.Fatal("transformation failed", zap.Error(err))
		}

		for _, step := range steps {
			fmt.Printf("  %-18s initial=%d dropped=%d left=%d\n",
				step.Name, step.Initial, step.Dropped, step.Left)
		}
		fmt.Printf("transformed %d posting(s)\n", len(postings))
	},
}

func init() {
	rootCmd.AddCommand(transformCmd)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/store"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete staged files, and optionally every stored posting",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, cfg := setup()

		withDatabase := cmd.Flag("database").Value.String() == "true"

		label := "Delete all staged files?"
		if withDatabase {
			label = "Delete all staged files AND every stored posting?"
		}

		prompt := promptui.Select{
			Label: label,
			Items: []string{PromptYes, PromptNo},
		}
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}

		stage := newStaging(cfg, logger)
		if err := stage.ClearRaw(); err != nil {
			logger.Fatal("clearing raw staging", zap.Error(err))
		}
		if err := stage.ClearProcessed(); err != nil {
			logger.Fatal("clearing processed staging", zap.Error(err))
		}
		fmt.Println("staging cleared")

		if withDatabase {
			pg := store.NewPostgres(cfg.Database.URL, 0, logger)
			deleted, err := pg.Purge(ctx)
			if err != nil {
				logger.Fatal("purging database", zap.Error(err))
			}
			fmt.Printf("deleted %d stored posting(s)\n", deleted)
		}
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)

	purgeCmd.Flags().Bool("database", false, "also delete every stored posting from the database")
}

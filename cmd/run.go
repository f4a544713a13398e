package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/config"
	"github.com/jobhunter/jobhunter/internal/embedding"
	"github.com/jobhunter/jobhunter/internal/jsearch"
	"github.com/jobhunter/jobhunter/internal/logger"
	"github.com/jobhunter/jobhunter/internal/pipeline"
	"github.com/jobhunter/jobhunter/internal/scrape"
	"github.com/jobhunter/jobhunter/internal/secrets"
	"github.com/jobhunter/jobhunter/internal/similarity"
	"github.com/jobhunter/jobhunter/internal/staging"
	"github.com/jobhunter/jobhunter/internal/store"
	"github.com/jobhunter/jobhunter/internal/transform"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full extract, transform and load pipeline",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before running")
	runCmd.Flags().Bool("keep-staging", false, "do not clear raw staging from previous runs")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, cfg := setup()

	logger.Info("starting the jobhunter", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(cfg, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if cmd.Flag("auto-approve").Value.String() == "false" {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Search %d term(s) and load results into the database. Proceed?", len(cfg.Search.Terms)),
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
	}

	p, pg := buildPipeline(ctx, cfg, logger)

	if err := pg.EnsureSchema(ctx); err != nil {
		logger.Fatal("preparing database schema", zap.Error(err))
	}

	stage := newStaging(cfg, logger)
	if cmd.Flag("keep-staging").Value.String() == "false" {
		if err := stage.ClearRaw(); err != nil {
			logger.Fatal("clearing raw staging", zap.Error(err))
		}
		if err := stage.ClearProcessed(); err != nil {
			logger.Fatal("clearing processed staging", zap.Error(err))
		}
	}

	report, err := p.Run(ctx)
	if err != nil {
		logger.Fatal("pipeline failed", zap.Error(err))
	}

	fmt.Printf("run %s finished in %s\n", report.RunID, report.Elapsed)
	fmt.Printf("  found:              %d\n", report.Found)
	fmt.Printf("  inserted:           %d\n", report.Inserted)
	fmt.Printf("  duplicates skipped: %d\n", report.DuplicatesSkipped)
	fmt.Printf("  empty searches:     %d\n", report.EmptySearches)
}

// setup builds the logger and the validated config every command starts from.
func setup() (*zap.Logger, *config.Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	return logger, cfg
}

func newStaging(cfg *config.Config, logger *zap.Logger) *staging.Store {
	return staging.New(cfg.Staging.RawDir, cfg.Staging.ProcessedDir, logger)
}

// buildPipeline assembles every stage collaborator. The embedding provider is
// optional: without its api key the pipeline still runs, storing postings
// unscored and without vectors.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, *store.Postgres) {
	searchKey, err := secrets.Load(secrets.Source{
		Name: "search api key",
		File: cfg.Search.APIKeyFile,
		Env:  "JSEARCH_API_KEY",
	})
	if err != nil {
		logger.Fatal(
			"loading search api key",
			zap.Error(err),
			zap.String("hint", "set JSEARCH_API_KEY, the JSEARCH_API_KEY_FILE environment variable or the 'search.api-key-file' key in the configuration file"),
		)
	}

	client := jsearch.New(cfg.Search, cfg.RateLimit, searchKey, logger)
	stage := newStaging(cfg, logger)

	provider := newEmbeddingProvider(ctx, cfg, logger)
	scorer := similarity.New(provider, cfg.Embedding.Delay, logger)
	fetcher := scrape.New(logger)
	transformer := transform.New(fetcher, scorer, stage, logger)

	dimensions := 0
	if provider != nil {
		dimensions = provider.Dimensions()
	}
	pg := store.NewPostgres(cfg.Database.URL, dimensions, logger)
	loader := store.NewLoader(pg, stage, provider, logger)

	return pipeline.New(cfg, client, stage, transformer, loader, logger), pg
}

func newEmbeddingProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) embedding.Provider {
	apiKey, err := secrets.Load(secrets.Source{
		Name: "embedding api key",
		File: cfg.Embedding.APIKeyFile,
		Env:  "EMBEDDING_API_KEY",
	})
	if err != nil {
		logger.Warn("embedding disabled: no api key",
			zap.Error(err),
			zap.String("hint", "set EMBEDDING_API_KEY, the EMBEDDING_API_KEY_FILE environment variable or the 'embedding.api-key-file' key in the configuration file"),
		)
		return nil
	}

	provider, err := embedding.New(ctx, cfg.Embedding, apiKey, logger)
	if err != nil {
		logger.Fatal("building embedding provider", zap.Error(err))
	}

	return provider
}

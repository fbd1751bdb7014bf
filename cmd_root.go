package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-ask/pkg/config"
	"github.com/ekaya-inc/ekaya-ask/pkg/llm"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

// app carries what every subcommand needs after bootstrap.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd(version string) *cobra.Command {
	var (
		configPath string
		envFiles   []string
		a          = &app{}
	)

	rootCmd := &cobra.Command{
		Use:   "ekaya-ask",
		Short: "Answer natural-language questions with read-only SQL",
		Long: `ekaya-ask turns a question into a validated, read-only SQL query against
the configured database, runs it and formats the answer.

Examples:
  ekaya-ask serve
  ekaya-ask ask "top 5 products by price"
  ekaya-ask ask --format sql "how many orders per customer?"
  ekaya-ask schema`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFiles(envFiles); err != nil {
				return err
			}

			cfg, err := config.Load(configPath, version)
			if err != nil {
				return err
			}

			logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}

			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file (default config.yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env", ".env.local"}, ".env files to load; existing environment variables win")

	rootCmd.AddCommand(
		newServeCmd(a),
		newAskCmd(a),
		newSchemaCmd(a),
	)

	return rootCmd
}

// loadEnvFiles loads the given .env files in order. Missing files are
// skipped and already-set variables are never overwritten.
func loadEnvFiles(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// openAskService connects to the configured database and wires the pipeline.
// The caller closes the returned datasource.
func (a *app) openAskService(ctx context.Context) (services.AskService, datasource.Datasource, error) {
	a.logger.Info("Connecting to database",
		zap.String("type", a.cfg.Database.Type),
		zap.String("host", a.cfg.Database.Host),
		zap.Int("port", a.cfg.Database.Port),
		zap.String("database", a.cfg.Database.Database))

	ds, err := datasource.Open(ctx, a.cfg.Database, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s datasource: %w", a.cfg.Database.Type, err)
	}

	completer, err := llm.NewCompleter(a.cfg.LLM, a.logger)
	if err != nil {
		_ = ds.Close()
		return nil, nil, fmt.Errorf("failed to configure completion service: %w", err)
	}
	if completer == nil {
		a.logger.Warn("LLM_API_KEY not set: SQL generation is unavailable and answers use the plain summary")
	} else {
		a.logger.Info("Completion service configured",
			zap.String("provider", a.cfg.LLM.Provider),
			zap.String("model", completer.GetModel()))
	}

	return services.NewAskService(ds, completer, a.cfg.Pipeline, a.logger), ds, nil
}

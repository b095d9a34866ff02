package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"expertimport/internal/config"
	"expertimport/internal/images"
	"expertimport/internal/importer"
	"expertimport/internal/journal"
	"expertimport/internal/linkedin"
	"expertimport/internal/mockdata"
	"expertimport/internal/sheet"
	"expertimport/internal/strapi"
	"expertimport/internal/synth"
)

var (
	configPath string
	envFile    string
	verbose    bool
	overrides  flagOverrides

	logger *zap.Logger
)

// flagOverrides holds flags that replace config values when set.
type flagOverrides struct {
	workbook      string
	sheet         string
	imagesDir     string
	defaultAvatar string
	mockDir       string
	journal       string
	dependents    string
	timeout       time.Duration
	seed          uint64
	dryRun        bool
}

var rootCmd = &cobra.Command{
	Use:   "expertimport",
	Short: "Import expert profiles from a spreadsheet into the CMS",
	Long: `Reads the "Import Ready" sheet of the expert workbook and upserts one
consultant per row. Missing contact details, certifications, languages,
testimonials and case studies are filled with placeholder data. Each
consultant also gets a mock bundle of properties and timeline posts.

STRAPI_URL and STRAPI_TOKEN come from the environment or a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runImport,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")
	f.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	f.StringVar(&overrides.workbook, "workbook", "", "path of the .xlsx workbook")
	f.StringVar(&overrides.sheet, "sheet", "", "sheet to import")
	f.StringVar(&overrides.imagesDir, "images", "", "directory of profile pictures")
	f.StringVar(&overrides.defaultAvatar, "default-avatar", "", "fallback picture inside the images directory")
	f.StringVar(&overrides.mockDir, "mock-dir", "", "directory of mock bundles replacing the embedded set")
	f.StringVar(&overrides.journal, "journal", "", "SQLite run journal path")
	f.StringVar(&overrides.dependents, "dependents", "", `"always" re-creates dependents, "once" skips journaled profiles`)
	f.DurationVar(&overrides.timeout, "timeout", 0, "per-request timeout")
	f.Uint64Var(&overrides.seed, "seed", 0, "seed for reproducible placeholder data (0 = random)")
	f.BoolVar(&overrides.dryRun, "dry-run", false, "build payloads without calling the CMS")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	fl := cmd.Flags()
	setIfChanged := func(name string, dst *string, v string) {
		if fl.Changed(name) {
			*dst = v
		}
	}
	setIfChanged("workbook", &cfg.Workbook, overrides.workbook)
	setIfChanged("sheet", &cfg.Sheet, overrides.sheet)
	setIfChanged("images", &cfg.ImagesDir, overrides.imagesDir)
	setIfChanged("default-avatar", &cfg.DefaultAvatar, overrides.defaultAvatar)
	setIfChanged("mock-dir", &cfg.MockDir, overrides.mockDir)
	setIfChanged("journal", &cfg.JournalPath, overrides.journal)
	setIfChanged("dependents", &cfg.Dependents, overrides.dependents)
	if fl.Changed("timeout") {
		cfg.RequestTimeout = overrides.timeout.String()
	}
	if fl.Changed("seed") {
		cfg.Seed = overrides.seed
	}
	cfg.DryRun = overrides.dryRun

	return cfg, cfg.Validate()
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("loading workbook", zap.String("path", cfg.Workbook), zap.String("sheet", cfg.Sheet))
	ws, err := sheet.Open(cfg.Workbook, cfg.Sheet)
	if err != nil {
		return err
	}
	logger.Info("workbook loaded", zap.Strings("columns", ws.Headers), zap.Int("rows", len(ws.Rows)))
	if missing := ws.Missing(sheet.Expected()...); len(missing) > 0 {
		logger.Warn("expected columns missing; those fields will be empty", zap.Strings("columns", missing))
	}

	resolver, err := images.NewResolver(cfg.ImagesDir, cfg.DefaultAvatar, logger)
	if err != nil {
		return err
	}
	logger.Info("images indexed", zap.String("dir", cfg.ImagesDir), zap.Int("files", resolver.Len()))

	bundles, err := loadBundles(cfg)
	if err != nil {
		return err
	}

	timeout, _ := cfg.HTTPTimeout()
	httpClient := config.NewHTTPClient(timeout)

	client := strapi.NewClient(cfg.StrapiURL, cfg.StrapiToken, httpClient)
	client.Collection = cfg.Collection

	gen := synth.New(nil)
	if cfg.Seed != 0 {
		gen = synth.NewSeeded(cfg.Seed)
	}

	imp := &importer.Importer{
		Client:  client,
		Images:  resolver,
		Synth:   gen,
		Bundles: bundles,
		Logger:  logger,
		Options: importer.Options{
			DryRun:     cfg.DryRun,
			Dependents: cfg.Dependents,
			RunID:      journal.NewRunID(),
		},
	}

	// A dry run stays offline, so the search API is not wired either.
	if matcher := linkedin.NewMatcher(httpClient, cfg, logger); matcher.Enabled() && !cfg.DryRun {
		imp.LinkedIn = matcher
	}

	var store *journal.Store
	if cfg.JournalPath != "" && !cfg.DryRun {
		store, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()
		imp.Journal = store
		logger.Info("journaling run", zap.String("path", store.Path()), zap.String("run_id", imp.Options.RunID))
	}

	res, err := imp.Run(ctx, ws.Rows)
	if res != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d, skipped %d, planned %d; %d properties, %d timeline posts, %d images; %d warnings\n",
			res.Created, res.Updated, res.Skipped, res.Planned, res.Properties, res.TimelinePosts, res.ImagesUploaded, res.Warnings)
	}
	if store != nil {
		printJournalSummary(cmd, store, imp.Options.RunID)
	}
	if err != nil {
		logger.Error("import aborted", zap.Error(err))
		return err
	}
	return nil
}

// printJournalSummary reports the steps this run journaled, by kind.
func printJournalSummary(cmd *cobra.Command, store *journal.Store, runID string) {
	// The run context may be cancelled by now; the summary is a local read.
	summary, err := store.Summary(context.Background(), runID)
	if err != nil {
		logger.Warn("reading journal summary failed", zap.Error(err))
		return
	}
	kinds := make([]string, 0, len(summary))
	for kind := range summary {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(cmd.OutOrStdout(), "journal %s: %d\n", kind, summary[journal.Kind(kind)])
	}
}

func loadBundles(cfg config.Config) ([]mockdata.Bundle, error) {
	if cfg.MockDir != "" {
		bundles, err := mockdata.LoadDir(cfg.MockDir)
		if err != nil {
			return nil, fmt.Errorf("loading mock data from %s: %w", cfg.MockDir, err)
		}
		return bundles, nil
	}
	return mockdata.Embedded()
}

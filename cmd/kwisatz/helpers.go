package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/config"
	"github.com/Veraticus/kwisatz/internal/corpus"
	"github.com/Veraticus/kwisatz/internal/engine"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/Veraticus/kwisatz/internal/ofx"
	"github.com/Veraticus/kwisatz/internal/storage"
	"github.com/Veraticus/kwisatz/internal/taxonomy"
	"github.com/spf13/viper"
)

// loadSettings reads and validates the settings from the global viper.
func loadSettings() (config.Settings, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Settings{}, common.NewUserError("invalid configuration", err)
	}
	return settings, nil
}

// loadTaxonomy reads the configured taxonomy file, falling back to the
// built-in taxonomy when none is configured.
func loadTaxonomy(settings config.Settings) (*model.Taxonomy, error) {
	if settings.TaxonomyPath == "" {
		return taxonomy.Default(), nil
	}
	if _, err := os.Stat(settings.TaxonomyPath); os.IsNotExist(err) {
		slog.Info("taxonomy file not found, using built-in taxonomy", "path", settings.TaxonomyPath)
		return taxonomy.Default(), nil
	}
	return taxonomy.LoadFile(settings.TaxonomyPath)
}

// loadCorpus reads every configured corpus file against tax.
func loadCorpus(tax *model.Taxonomy, settings config.Settings) (*corpus.Corpus, error) {
	if len(settings.CorpusPaths) == 0 {
		slog.Warn("no corpus files configured; every prediction will be UNKNOWN")
		return corpus.Empty(), nil
	}

	rows, err := corpus.LoadFiles(settings.CorpusPaths...)
	if err != nil {
		return nil, err
	}
	return corpus.New(tax, rows)
}

// loadInputs reads taxonomy and corpus for the given settings.
func loadInputs(settings config.Settings) (*model.Taxonomy, *corpus.Corpus, error) {
	tax, err := loadTaxonomy(settings)
	if err != nil {
		return nil, nil, common.NewUserError("failed to load taxonomy", err)
	}
	c, err := loadCorpus(tax, settings)
	if err != nil {
		return nil, nil, common.NewUserError("failed to load corpus", err)
	}
	return tax, c, nil
}

// buildEngine loads settings, taxonomy and corpus and builds an engine.
func buildEngine(opts ...engine.Option) (*engine.Engine, config.Settings, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, config.Settings{}, err
	}
	tax, c, err := loadInputs(settings)
	if err != nil {
		return nil, config.Settings{}, err
	}

	e, err := engine.New(tax, c, settings, opts...)
	if err != nil {
		return nil, config.Settings{}, common.NewUserError("failed to build engine", err)
	}
	return e, settings, nil
}

// initStorage opens the correction log and runs migrations.
func initStorage(ctx context.Context, settings config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// correctionSink wraps store in an asynchronous sink configured from
// settings.
func correctionSink(store *storage.SQLiteStorage, settings config.Settings) *engine.AsyncSink {
	opts := []engine.SinkOption{
		engine.WithSinkErrorHandler(func(c model.Correction, err error) {
			common.LogError(err, "failed to persist correction", common.Fields{
				"id":          c.ID,
				"description": c.Description,
			})
		}),
	}
	if settings.Corrections.BufferSize > 0 {
		opts = append(opts, engine.WithSinkBuffer(settings.Corrections.BufferSize))
	}
	if settings.Corrections.DropOnFull {
		opts = append(opts, engine.WithDropOnFull())
	}
	return engine.NewAsyncSink(store, opts...)
}

// readInput loads descriptions from a CSV file with a description column or
// from an OFX/QFX statement.
func readInput(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return corpus.ReadDescriptions(f)
	case ".ofx", ".qfx":
		stmt, err := ofx.NewParser().ReadStatement(ctx, f)
		if err != nil {
			return nil, err
		}
		return stmt.Descriptions(), nil
	default:
		return nil, common.NewUserError(
			fmt.Sprintf("unsupported input %s: expected .csv, .ofx or .qfx", filepath.Base(path)), nil)
	}
}

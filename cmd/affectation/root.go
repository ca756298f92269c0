package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/internship-affectation/internal/affectation"
	"github.com/noah-isme/internship-affectation/internal/repository"
	"github.com/noah-isme/internship-affectation/internal/service"
	"github.com/noah-isme/internship-affectation/pkg/config"
	"github.com/noah-isme/internship-affectation/pkg/database"
	"github.com/noah-isme/internship-affectation/pkg/logger"
)

type rootOptions struct {
	fixture string
	quiet   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "affectation",
		Short:        "Assign internship students to hospitals across the twelve periods",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.fixture, "fixture", "", "YAML dataset to use instead of the database (nothing is persisted)")
	cmd.PersistentFlags().BoolVar(&opts.quiet, "quiet", false, "Disable logging on stderr")
	cmd.AddCommand(newRunCmd(opts), newStatsCmd(opts))
	return cmd
}

type datasetLoader interface {
	Load(ctx context.Context) (*affectation.Dataset, error)
}

// environment bundles what every subcommand needs.
type environment struct {
	cfg     *config.Config
	logger  *zap.Logger
	source  datasetLoader
	service *service.AffectationService
	engine  *affectation.Engine
	close   func()
}

func setup(ctx context.Context, opts *rootOptions) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logr := zap.NewNop()
	if !opts.quiet {
		if logr, err = logger.New(cfg); err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	env := &environment{cfg: cfg, logger: logr, close: func() { _ = logr.Sync() }}
	env.engine = affectation.NewEngine(service.EngineOptions(cfg.Affectation), logger.Component(logr, "engine"))
	settings := service.AffectationSettings(cfg)

	if opts.fixture != "" {
		env.source = repository.NewFixtureDatasetSource(opts.fixture)
		env.service = service.NewAffectationService(env.source, nil, nil, env.engine, nil, nil, nil, nil,
			logger.Component(logr, "affectation"), settings)
		return env, nil
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	env.close = func() {
		_ = db.Close()
		_ = logr.Sync()
	}
	env.source = repository.NewSQLDatasetSource(
		repository.NewInternshipCatalogRepository(db),
		repository.NewInternshipStudentRepository(db),
	)
	env.service = service.NewAffectationService(env.source, repository.NewAffectationRepository(db), db, env.engine,
		nil, nil, nil, nil, logger.Component(logr, "affectation"), settings)
	return env, nil
}

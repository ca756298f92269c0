package service

import (
	"github.com/noah-isme/internship-affectation/internal/affectation"
	"github.com/noah-isme/internship-affectation/pkg/config"
)

// EngineOptions maps configuration onto engine options.
func EngineOptions(cfg config.AffectationConfig) affectation.Options {
	return affectation.Options{
		Executions:                cfg.DefaultExecutions,
		Seed:                      cfg.Seed,
		Workers:                   cfg.Workers,
		ErrorOrganizationRef:      cfg.ErrorOrganizationRef,
		EditOrganizationRef:       cfg.EditOrganizationRef,
		ErasmusReferenceThreshold: cfg.ErasmusReferenceThreshold,
		FullDistancePenalty:       cfg.FullDistancePenalty,
	}
}

// AffectationSettings maps configuration onto service limits.
func AffectationSettings(cfg *config.Config) AffectationServiceConfig {
	return AffectationServiceConfig{
		DefaultExecutions: cfg.Affectation.DefaultExecutions,
		MaxExecutions:     cfg.Affectation.MaxExecutions,
		Seed:              cfg.Affectation.Seed,
		Workers:           cfg.Affectation.Workers,
		StatisticsTTL:     cfg.Statistics.CacheTTL,
	}
}

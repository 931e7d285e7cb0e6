// Package pipeline runs a reconciliation: import the card export, categorize
// it, merge it into the master ledger and grow the keyword mapping.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/expense-tracker/internal/categorizer"
	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/importer"
	"github.com/dvloznov/expense-tracker/internal/logger"
)

// Deps are the collaborators of a run. Archiver and Exporter are optional.
type Deps struct {
	Source   importer.Source
	Mapping  MappingStore
	Ledger   LedgerStore
	Archiver Archiver
	Exporter Exporter
}

// FileDeps returns the workbook-backed dependencies configured in cfg, reading
// exports from source.
func FileDeps(cfg *config.Config, source importer.Source) Deps {
	return Deps{
		Source:  source,
		Mapping: FileMappingStore{File: cfg.MappingFile, Sheet: cfg.MappingSheet},
		Ledger:  FileLedgerStore{File: cfg.LedgerFile, Sheet: cfg.LedgerSheet},
	}
}

// Result summarizes a finished run.
type Result struct {
	RunID       string
	Imported    int
	Added       int
	Total       int
	NewMappings []domain.MappingEntry
	BySource    map[categorizer.Source]int
	Backups     []string
	Exported    int
}

// NewReconcilePipeline creates the standard pipeline for deps. The backup and
// export steps are only added when their dependency is set.
func NewReconcilePipeline(cfg *config.Config, deps Deps) *Pipeline {
	steps := []PipelineStep{
		&LoadMappingStep{Store: deps.Mapping},
		&ImportStep{Importer: importer.New(deps.Source, importer.LayoutFromConfig(cfg))},
		&LoadHistoryStep{Store: deps.Ledger},
		&CategorizeStep{},
		&MergeStep{},
		&SaveLedgerStep{Store: deps.Ledger},
		&UpdateMappingStep{Store: deps.Mapping},
	}
	if deps.Archiver != nil {
		steps = append(steps, &BackupStep{
			Archiver: deps.Archiver,
			Paths:    []string{deps.Ledger.Path(), deps.Mapping.Path()},
		})
	}
	if deps.Exporter != nil {
		steps = append(steps, &ExportStep{Exporter: deps.Exporter})
	}
	return NewPipeline(steps...)
}

// Run executes one reconciliation. Every log line of the run carries its
// run ID. importer.ErrNoInputFiles is returned, wrapped, when there was
// nothing to import; no file is written in that case.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Result, error) {
	if deps.Source == nil || deps.Mapping == nil || deps.Ledger == nil {
		return nil, fmt.Errorf("Run: source, mapping and ledger are required")
	}

	runID := uuid.NewString()
	log := logger.WithRun(logger.FromContext(ctx), runID)
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("source", deps.Source.String()).Str("ledger", deps.Ledger.Path()).Msg("starting reconciliation")

	state := &PipelineState{Config: cfg, RunID: runID}
	if err := NewReconcilePipeline(cfg, deps).Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	res := &Result{
		RunID:       runID,
		Imported:    len(state.Imported),
		Added:       state.Added,
		Total:       len(state.Combined),
		NewMappings: state.NewMappings,
		BySource:    state.BySource,
		Backups:     state.Backups,
		Exported:    state.Exported,
	}
	log.Info().Int("imported", res.Imported).Int("added", res.Added).Int("total", res.Total).Msg("reconciliation finished")
	return res, nil
}

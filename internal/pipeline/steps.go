package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/expense-tracker/internal/categorizer"
	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/importer"
	"github.com/dvloznov/expense-tracker/internal/ledger"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/mapping"
)

// PipelineStep represents a single step in the reconciliation pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Config *config.Config
	RunID  string

	Mapping *mapping.Table
	Index   *mapping.Index

	Imported []domain.Transaction
	History  []domain.Transaction
	BySource map[categorizer.Source]int

	Combined []domain.Transaction
	Added    int

	NewMappings []domain.MappingEntry
	Backups     []string
	Exported    int
}

// Step 1: LoadMappingStep loads the keyword table and builds its index.
type LoadMappingStep struct {
	Store MappingStore
}

func (s *LoadMappingStep) Execute(ctx context.Context, state *PipelineState) error {
	table, err := s.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("LoadMappingStep: %w", err)
	}
	state.Mapping = table
	state.Index = table.Index(state.Config.KeywordPolicy)

	log := logger.FromContext(ctx)
	log.Info().
		Int("entries", table.Len()).
		Int("categories", len(state.Index.Categories())).
		Msg("loaded mapping")
	return nil
}

// Step 2: ImportStep reads the card exports. ErrNoInputFiles stops the run
// before anything is written.
type ImportStep struct {
	Importer *importer.Importer
}

func (s *ImportStep) Execute(ctx context.Context, state *PipelineState) error {
	txns, err := s.Importer.Import(ctx)
	if err != nil {
		return fmt.Errorf("ImportStep: %w", err)
	}
	state.Imported = txns

	log := logger.FromContext(ctx)
	log.Info().Int("rows", len(txns)).Msg("imported rows")
	return nil
}

// Step 3: LoadHistoryStep reads the master ledger. A missing or unreadable
// ledger is not fatal: the run continues with no history.
type LoadHistoryStep struct {
	Store LedgerStore
}

func (s *LoadHistoryStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"path": s.Store.Path(),
	})

	rows, err := s.Store.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("master ledger invalid or missing, starting with no history")
		state.History = nil
		return nil
	}
	state.History = rows

	log.Info().Int("rows", len(rows)).Msg("loaded master ledger")
	return nil
}

// Step 4: CategorizeStep assigns a category and expense type to every
// imported row.
type CategorizeStep struct{}

func (s *CategorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	cfg := state.Config
	history := categorizer.NewHistory(state.History, cfg.HistoryPolicy)
	c := categorizer.New(history, state.Index, cfg)
	state.BySource = c.CategorizeAll(state.Imported)

	log := logger.FromContext(ctx)
	log.Info().
		Int("remembered", history.Len()).
		Int(string(categorizer.SourceHistory), state.BySource[categorizer.SourceHistory]).
		Int(string(categorizer.SourceKeyword), state.BySource[categorizer.SourceKeyword]).
		Int(string(categorizer.SourceDefault), state.BySource[categorizer.SourceDefault]).
		Msg("categorized rows")
	return nil
}

// Step 5: MergeStep unions the batch with the ledger, dropping duplicates.
type MergeStep struct{}

func (s *MergeStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	if len(state.History) == 0 {
		log.Info().Msg("no history, ledger starts from this batch")
	}

	state.Combined, state.Added = ledger.Merge(state.History, state.Imported)

	log.Info().
		Int("added", state.Added).
		Int("duplicates", len(state.Imported)-state.Added).
		Int("total", len(state.Combined)).
		Msg("merged batch into ledger")
	return nil
}

// Step 6: SaveLedgerStep rewrites the master sheet.
type SaveLedgerStep struct {
	Store LedgerStore
}

func (s *SaveLedgerStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.Store.Save(ctx, state.Combined); err != nil {
		return fmt.Errorf("SaveLedgerStep: %w", err)
	}

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"path": s.Store.Path(),
	})
	log.Info().
		Int("rows", len(state.Combined)).
		Msg("saved master ledger")
	return nil
}

// Step 7: UpdateMappingStep appends the pairs observed in this batch to the
// mapping table. Failures are logged; the ledger is already saved.
type UpdateMappingStep struct {
	Store MappingStore
}

func (s *UpdateMappingStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	table := state.Mapping
	if table == nil {
		table = &mapping.Table{}
	}
	added := table.Grow(state.Imported, state.Config.KeywordPolicy)
	if len(added) == 0 {
		log.Info().Msg("mapping already covers this batch")
		return nil
	}

	if err := s.Store.Save(ctx, table); err != nil {
		log.Warn().Err(err).Str("path", s.Store.Path()).Msg("failed to update mapping file")
		return nil
	}
	state.NewMappings = added

	log.Info().Int("added", len(added)).Int("entries", table.Len()).Msg("updated mapping")
	return nil
}

// Step 8: BackupStep uploads the saved workbooks. Best effort.
type BackupStep struct {
	Archiver Archiver
	Paths    []string
}

func (s *BackupStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	uris, err := s.Archiver.Archive(ctx, state.RunID, s.Paths...)
	state.Backups = uris
	if err != nil {
		log.Warn().Err(err).Msg("backup failed")
		return nil
	}

	log.Info().Strs("objects", uris).Msg("backed up workbooks")
	return nil
}

// Step 9: ExportStep publishes the rows this run added to the ledger. Merge
// places them at the end of Combined. Best effort.
type ExportStep struct {
	Exporter Exporter
}

func (s *ExportStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	if state.Added == 0 {
		log.Info().Msg("nothing new to export")
		return nil
	}

	added := state.Combined[len(state.Combined)-state.Added:]
	n, err := s.Exporter.Export(ctx, state.RunID, added)
	state.Exported = n
	if err != nil {
		log.Warn().Err(err).Msg("export failed")
		return nil
	}

	log.Info().Int("rows", n).Msg("exported ledger")
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

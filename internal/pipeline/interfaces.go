package pipeline

import (
	"context"

	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/ledger"
	"github.com/dvloznov/expense-tracker/internal/mapping"
)

// MappingStore loads and persists the keyword → category table.
// This interface enables mocking and testing of the mapping workbook.
type MappingStore interface {
	Load(ctx context.Context) (*mapping.Table, error)
	Save(ctx context.Context, table *mapping.Table) error
	// Path is the local file written by Save, used for backups.
	Path() string
}

// LedgerStore loads and persists the master ledger.
type LedgerStore interface {
	Load(ctx context.Context) ([]domain.Transaction, error)
	Save(ctx context.Context, rows []domain.Transaction) error
	Path() string
}

// Archiver copies saved workbooks somewhere safe.
type Archiver interface {
	Archive(ctx context.Context, runID string, paths ...string) ([]string, error)
}

// Exporter publishes the ledger to an analytics store.
type Exporter interface {
	Export(ctx context.Context, runID string, rows []domain.Transaction) (int, error)
}

// FileMappingStore is the workbook-backed MappingStore.
type FileMappingStore struct {
	File  string
	Sheet string
}

func (s FileMappingStore) Load(ctx context.Context) (*mapping.Table, error) {
	return mapping.Load(s.File, s.Sheet)
}

func (s FileMappingStore) Save(ctx context.Context, table *mapping.Table) error {
	return table.Save(s.File, s.Sheet)
}

func (s FileMappingStore) Path() string { return s.File }

// FileLedgerStore is the workbook-backed LedgerStore.
type FileLedgerStore struct {
	File  string
	Sheet string
}

func (s FileLedgerStore) Load(ctx context.Context) ([]domain.Transaction, error) {
	return ledger.Load(s.File, s.Sheet)
}

func (s FileLedgerStore) Save(ctx context.Context, rows []domain.Transaction) error {
	return ledger.Save(s.File, s.Sheet, rows)
}

func (s FileLedgerStore) Path() string { return s.File }

// Ensure the file stores implement their interfaces.
var (
	_ MappingStore = FileMappingStore{}
	_ LedgerStore  = FileLedgerStore{}
)

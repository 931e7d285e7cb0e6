// Package importer reads card exports into expense transactions.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/workbook"
)

// ErrNoInputFiles is returned when the source holds no recognized export.
var ErrNoInputFiles = errors.New("no valid input files found")

// Export column headers.
const (
	ColDate        = "Date"
	ColDescription = "Description"
	ColAmount      = "Amount"
)

// Layout describes the fixed shape of a card export.
type Layout struct {
	FileName   string // matched case-insensitively against the base name
	Sheet      string
	SkipRows   int // rows above the header row
	DateLayout string
	Origin     string
}

// LayoutFromConfig returns the export layout configured in cfg.
func LayoutFromConfig(cfg *config.Config) Layout {
	return Layout{
		FileName:   cfg.ExportFile,
		Sheet:      cfg.ExportSheet,
		SkipRows:   cfg.ExportSkipRows,
		DateLayout: cfg.ExportDateLayout,
		Origin:     cfg.Origin,
	}
}

// Matches reports whether name is the export this layout reads.
func (l Layout) Matches(name string) bool {
	return strings.EqualFold(path.Base(name), l.FileName)
}

// Importer turns the exports found in a Source into transactions.
type Importer struct {
	source Source
	layout Layout
}

// New creates an Importer reading source with layout.
func New(source Source, layout Layout) *Importer {
	return &Importer{source: source, layout: layout}
}

// Import parses every matching export in the source and returns the expense
// rows in file order. ErrNoInputFiles is returned when nothing matches.
func (im *Importer) Import(ctx context.Context) ([]domain.Transaction, error) {
	log := logger.FromContext(ctx)

	names, err := im.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("Import: listing %s: %w", im.source, err)
	}

	var (
		out     []domain.Transaction
		matched int
	)
	for _, name := range names {
		if !im.layout.Matches(name) {
			log.Debug().Str("file", name).Msg("skipping unrecognized file")
			continue
		}
		matched++

		data, err := im.source.Open(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("Import: %w", err)
		}
		txns, err := Parse(data, im.layout)
		if err != nil {
			return nil, fmt.Errorf("Import: %s: %w", name, err)
		}
		log.Info().Str("file", name).Int("rows", len(txns)).Msg("imported export")
		out = append(out, txns...)
	}

	if matched == 0 {
		return nil, ErrNoInputFiles
	}
	return out, nil
}

// Parse reads one export workbook. Rows with a negative amount (payments and
// refunds) are dropped.
func Parse(data []byte, layout Layout) ([]domain.Transaction, error) {
	f, err := workbook.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseFile(f, layout)
}

// ParseFile is Parse on an open workbook.
func ParseFile(f *excelize.File, layout Layout) ([]domain.Transaction, error) {
	rows, err := workbook.ReadSheet(f, layout.Sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) <= layout.SkipRows {
		return nil, fmt.Errorf("sheet %q has no header after %d rows", layout.Sheet, layout.SkipRows)
	}

	header := workbook.HeaderIndex(rows[layout.SkipRows])
	cols := make(map[string]int, 3)
	for _, name := range []string{ColDate, ColDescription, ColAmount} {
		i, ok := header[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("sheet %q: missing column %q", layout.Sheet, name)
		}
		cols[name] = i
	}

	var out []domain.Transaction
	for _, row := range rows[layout.SkipRows+1:] {
		date := workbook.At(row, cols[ColDate])
		desc := workbook.At(row, cols[ColDescription])
		amount := workbook.At(row, cols[ColAmount])
		if isBlank(date, desc, amount) {
			continue
		}

		tx := domain.Transaction{
			Date:        workbook.Date(date, layout.DateLayout),
			Description: strings.TrimSpace(desc.Value),
			Amount:      workbook.Amount(amount),
			Origin:      layout.Origin,
		}
		if tx.Amount.IsNegative() {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func isBlank(cells ...workbook.Cell) bool {
	for _, c := range cells {
		if strings.TrimSpace(c.Value) != "" {
			return false
		}
	}
	return true
}

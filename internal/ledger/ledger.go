// Package ledger reads, merges and writes the master ledger sheet.
package ledger

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/workbook"
)

// Column headers of the master sheet, in write order.
const (
	ColDate            = "Date"
	ColDescription     = "Description"
	ColAmount          = "Amount"
	ColOrigin          = "Origin"
	ColCategory        = "category"
	ColTypeTransaction = "TypeTransaction"
	ColTypeExpense     = "TypeExpense"
)

// Header is the first row written to the master sheet.
var Header = []string{ColDate, ColDescription, ColAmount, ColOrigin, ColCategory, ColTypeTransaction, ColTypeExpense}

// Display formats applied on save.
const (
	DateFormat = "dd/mm/yyyy"
	// AmountNumFmt is the built-in "#,##0.00" format.
	AmountNumFmt = 4
)

// dateLayouts are tried in order on text dates; stored dates are day-first.
var dateLayouts = []string{"2/1/2006", "2006-01-02", "2006-01-02 15:04:05", "2/1/06"}

// Load reads the master ledger from sheet of the workbook at path.
func Load(path, sheet string) ([]domain.Transaction, error) {
	f, err := workbook.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ledger.Load: %w", err)
	}
	defer f.Close()

	rows, err := Read(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("ledger.Load: %q: %w", path, err)
	}
	return rows, nil
}

// Read parses the master sheet of an open workbook. Headers are matched
// case-insensitively, so both "category" and "Category" are accepted. A sheet
// without a Description column is rejected.
func Read(f *excelize.File, sheet string) ([]domain.Transaction, error) {
	rows, err := workbook.ReadSheet(f, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := workbook.HeaderIndex(rows[0])
	col := func(name string) int {
		if i, ok := header[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}
	descCol := col(ColDescription)
	if descCol == -1 {
		return nil, fmt.Errorf("sheet %q has no %q column", sheet, ColDescription)
	}
	dateCol, amountCol, originCol := col(ColDate), col(ColAmount), col(ColOrigin)
	catCol, typeTxCol, typeExpCol := col(ColCategory), col(ColTypeTransaction), col(ColTypeExpense)

	out := make([]domain.Transaction, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		out = append(out, domain.Transaction{
			Date:            workbook.Date(workbook.At(row, dateCol), dateLayouts...),
			Description:     strings.TrimSpace(workbook.At(row, descCol).Value),
			Amount:          workbook.Amount(workbook.At(row, amountCol)),
			Origin:          strings.TrimSpace(workbook.At(row, originCol).Value),
			Category:        strings.TrimSpace(workbook.At(row, catCol).Value),
			TypeTransaction: strings.TrimSpace(workbook.At(row, typeTxCol).Value),
			TypeExpense:     strings.TrimSpace(workbook.At(row, typeExpCol).Value),
		})
	}
	return out, nil
}

func isBlank(row []workbook.Cell) bool {
	for _, c := range row {
		if strings.TrimSpace(c.Value) != "" {
			return false
		}
	}
	return true
}

// Merge appends incoming to existing and drops rows whose Key was already
// seen, so existing rows win over new ones and the first of two identical
// new rows is kept. added counts the incoming rows that made it in.
func Merge(existing, incoming []domain.Transaction) (combined []domain.Transaction, added int) {
	seen := make(map[string]bool, len(existing)+len(incoming))
	combined = make([]domain.Transaction, 0, len(existing)+len(incoming))

	for _, tx := range existing {
		key := tx.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		combined = append(combined, tx)
	}
	for _, tx := range incoming {
		key := tx.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		combined = append(combined, tx)
		added++
	}
	return combined, added
}

// Save replaces sheet in the workbook at path (creating the workbook if
// needed) with the header and rows, formats the date and amount columns and
// saves atomically.
func Save(path, sheet string, rows []domain.Transaction) error {
	f, err := workbook.OpenForRewrite(path, sheet)
	if err != nil {
		return fmt.Errorf("ledger.Save: %w", err)
	}
	defer f.Close()

	values := make([][]interface{}, len(rows))
	for i, tx := range rows {
		values[i] = []interface{}{
			workbook.DateValue(tx.Date),
			tx.Description,
			tx.Amount.InexactFloat64(),
			tx.Origin,
			tx.Category,
			tx.TypeTransaction,
			tx.TypeExpense,
		}
	}
	if err := workbook.WriteTable(f, sheet, Header, values); err != nil {
		return fmt.Errorf("ledger.Save: %w", err)
	}

	lastRow := len(rows) + 1
	if err := workbook.FormatColumn(f, sheet, 1, lastRow, DateFormat, 0); err != nil {
		return fmt.Errorf("ledger.Save: date format: %w", err)
	}
	if err := workbook.FormatColumn(f, sheet, 3, lastRow, "", AmountNumFmt); err != nil {
		return fmt.Errorf("ledger.Save: amount format: %w", err)
	}

	if err := workbook.SaveAtomic(f, path); err != nil {
		return fmt.Errorf("ledger.Save: %w", err)
	}
	return nil
}

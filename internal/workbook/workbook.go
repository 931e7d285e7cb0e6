// Package workbook wraps the excelize calls shared by the importer, the ledger
// and the mapping table: opening workbooks, reading typed cells, replacing a
// sheet wholesale and saving without leaving a half-written file behind.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// scratchSheet temporarily holds the replacement while the old sheet is deleted.
const scratchSheet = "__replacing__"

// Cell is one spreadsheet cell as seen by the readers: its displayed text,
// its stored value and whether the stored value is a number (dates included).
type Cell struct {
	Value   string // formatted as Excel would display it
	Raw     string // stored value, e.g. an Excel date serial
	Numeric bool
}

// Open opens an existing workbook. A missing file yields an error wrapping
// os.ErrNotExist.
func Open(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("Open: %q: %w", path, err)
	}
	return f, nil
}

// OpenBytes opens a workbook held in memory, e.g. downloaded from Cloud Storage.
func OpenBytes(data []byte) (*excelize.File, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("OpenBytes: %w", err)
	}
	return f, nil
}

// OpenForRewrite opens path (or starts a new workbook when it does not exist)
// and leaves an empty sheet named sheet in place of any existing one. Other
// sheets of an existing workbook are preserved.
func OpenForRewrite(path, sheet string) (*excelize.File, error) {
	f, err := Open(path)
	if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		placeholder := f.GetSheetName(0)
		if err := f.SetSheetName(placeholder, sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("OpenForRewrite: naming sheet %q: %w", sheet, err)
		}
		return f, nil
	}
	if err != nil {
		return nil, err
	}

	if err := ReplaceSheet(f, sheet); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// ReplaceSheet discards the sheet named name, if any, and creates an empty one
// with the same name, which becomes the active sheet.
func ReplaceSheet(f *excelize.File, name string) error {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("ReplaceSheet: %w", err)
	}

	if idx == -1 {
		idx, err = f.NewSheet(name)
		if err != nil {
			return fmt.Errorf("ReplaceSheet: creating %q: %w", name, err)
		}
		f.SetActiveSheet(idx)
		return nil
	}

	// excelize will not delete the only sheet of a workbook, so the fresh
	// sheet is created first and renamed once the old one is gone.
	if _, err := f.NewSheet(scratchSheet); err != nil {
		return fmt.Errorf("ReplaceSheet: creating scratch sheet: %w", err)
	}
	if err := f.DeleteSheet(name); err != nil {
		return fmt.Errorf("ReplaceSheet: deleting %q: %w", name, err)
	}
	if err := f.SetSheetName(scratchSheet, name); err != nil {
		return fmt.Errorf("ReplaceSheet: renaming scratch sheet: %w", err)
	}
	if idx, err = f.GetSheetIndex(name); err == nil && idx != -1 {
		f.SetActiveSheet(idx)
	}
	return nil
}

// ReadSheet returns every row of sheet as typed cells. Trailing empty cells
// and rows are dropped, as excelize does.
func ReadSheet(f *excelize.File, sheet string) ([][]Cell, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("ReadSheet: %w", err)
	}
	if idx == -1 {
		return nil, fmt.Errorf("ReadSheet: sheet %q not found", sheet)
	}

	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ReadSheet: reading %q: %w", sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("ReadSheet: reading raw %q: %w", sheet, err)
	}

	rows := make([][]Cell, len(formatted))
	for r, values := range formatted {
		cells := make([]Cell, len(values))
		for c, value := range values {
			cell := Cell{Value: value, Raw: value}
			if r < len(raw) && c < len(raw[r]) {
				cell.Raw = raw[r][c]
			}
			if strings.TrimSpace(cell.Raw) != "" {
				name, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, fmt.Errorf("ReadSheet: %w", err)
				}
				cellType, err := f.GetCellType(sheet, name)
				if err != nil {
					return nil, fmt.Errorf("ReadSheet: cell type of %s: %w", name, err)
				}
				cell.Numeric = isNumericCell(cellType, cell.Raw)
			}
			cells[c] = cell
		}
		rows[r] = cells
	}
	return rows, nil
}

func isNumericCell(t excelize.CellType, raw string) bool {
	switch t {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool, excelize.CellTypeError:
		return false
	}
	_, ok := parseFloat(raw)
	return ok
}

// HeaderIndex maps lowercased, trimmed header names to their column position.
// The first occurrence of a repeated header wins.
func HeaderIndex(header []Cell) map[string]int {
	index := make(map[string]int, len(header))
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell.Value))
		if name == "" {
			continue
		}
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	return index
}

// At returns the cell at column col of row, or an empty cell when the row is
// shorter or col is negative.
func At(row []Cell, col int) Cell {
	if col < 0 || col >= len(row) {
		return Cell{}
	}
	return row[col]
}

// WriteTable writes header on the first row of sheet and rows below it.
func WriteTable(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("WriteTable: header: %w", err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("WriteTable: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("WriteTable: row %d: %w", i+2, err)
		}
	}
	return nil
}

// FormatColumn applies a number format to rows 2..lastRow of column col (1-based).
// customFmt is used when non-empty, otherwise the built-in format numFmt.
func FormatColumn(f *excelize.File, sheet string, col, lastRow int, customFmt string, numFmt int) error {
	if lastRow < 2 {
		return nil
	}
	style := &excelize.Style{NumFmt: numFmt}
	if customFmt != "" {
		style = &excelize.Style{CustomNumFmt: &customFmt}
	}
	styleID, err := f.NewStyle(style)
	if err != nil {
		return fmt.Errorf("FormatColumn: %w", err)
	}
	top, err := excelize.CoordinatesToCellName(col, 2)
	if err != nil {
		return fmt.Errorf("FormatColumn: %w", err)
	}
	bottom, err := excelize.CoordinatesToCellName(col, lastRow)
	if err != nil {
		return fmt.Errorf("FormatColumn: %w", err)
	}
	if err := f.SetCellStyle(sheet, top, bottom, styleID); err != nil {
		return fmt.Errorf("FormatColumn: %w", err)
	}
	return nil
}

// SaveAtomic writes the workbook to a temporary file next to path and renames
// it over path, so an interrupted save never truncates the previous file.
func SaveAtomic(f *excelize.File, path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("SaveAtomic: creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = f.WriteTo(tmp); err != nil {
		return fmt.Errorf("SaveAtomic: writing workbook: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("SaveAtomic: sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("SaveAtomic: close: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("SaveAtomic: chmod: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("SaveAtomic: rename to %q: %w", path, err)
	}
	return nil
}

// Package mapping loads, matches and grows the keyword → category table kept
// in the mapping workbook.
package mapping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/workbook"
)

const (
	categoryHeader = "category"
	keywordHeader  = "keyword"

	// legacyCategoryHeader is the Italian header used by older mapping files.
	legacyCategoryHeader = "categoria"
)

// Table is the mapping table in file order.
type Table struct {
	Entries []domain.MappingEntry
}

// Load reads the mapping table from sheet of the workbook at path.
func Load(path, sheet string) (*Table, error) {
	f, err := workbook.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping.Load: %w", err)
	}
	defer f.Close()

	t, err := Read(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("mapping.Load: %q: %w", path, err)
	}
	return t, nil
}

// Read parses the mapping table from an open workbook. Header names are
// matched case-insensitively; keywords are lowercased and trimmed. Rows
// without a category or a keyword are skipped since an empty keyword would
// match every description.
func Read(f *excelize.File, sheet string) (*Table, error) {
	rows, err := workbook.ReadSheet(f, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheet)
	}

	header := workbook.HeaderIndex(rows[0])
	catCol, ok := header[categoryHeader]
	if !ok {
		catCol, ok = header[legacyCategoryHeader]
	}
	if !ok {
		return nil, fmt.Errorf("sheet %q has no %q column", sheet, categoryHeader)
	}
	kwCol, ok := header[keywordHeader]
	if !ok {
		return nil, fmt.Errorf("sheet %q has no %q column", sheet, keywordHeader)
	}

	t := &Table{}
	for _, row := range rows[1:] {
		category := strings.TrimSpace(workbook.At(row, catCol).Value)
		keyword := domain.NormalizeDescription(workbook.At(row, kwCol).Value)
		if category == "" || keyword == "" {
			continue
		}
		t.Entries = append(t.Entries, domain.MappingEntry{Category: category, Keyword: keyword})
	}
	return t, nil
}

// Save rewrites sheet of the workbook at path with the whole table. Other
// sheets of an existing workbook are kept.
func (t *Table) Save(path, sheet string) error {
	f, err := workbook.OpenForRewrite(path, sheet)
	if err != nil {
		return fmt.Errorf("mapping.Save: %w", err)
	}
	defer f.Close()

	rows := make([][]interface{}, len(t.Entries))
	for i, e := range t.Entries {
		rows[i] = []interface{}{e.Category, e.Keyword}
	}
	if err := workbook.WriteTable(f, sheet, []string{categoryHeader, keywordHeader}, rows); err != nil {
		return fmt.Errorf("mapping.Save: %w", err)
	}
	if err := workbook.SaveAtomic(f, path); err != nil {
		return fmt.Errorf("mapping.Save: %w", err)
	}
	return nil
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.Entries) }

// Contains reports whether the exact (category, keyword) pair is present.
func (t *Table) Contains(e domain.MappingEntry) bool {
	for _, have := range t.Entries {
		if have == e {
			return true
		}
	}
	return false
}

// Dedup removes repeated (category, keyword) pairs, keeping first occurrences.
func (t *Table) Dedup() {
	seen := make(map[domain.MappingEntry]bool, len(t.Entries))
	out := t.Entries[:0]
	for _, e := range t.Entries {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	t.Entries = out
}

// Grow appends the (category, description) pairs of txns that the table does
// not know yet and returns them. A pair is skipped when it is already present
// or when the table, matched with policy, already resolves that description
// to the same category.
func (t *Table) Grow(txns []domain.Transaction, policy string) []domain.MappingEntry {
	index := t.Index(policy)
	existing := make(map[domain.MappingEntry]bool, len(t.Entries))
	for _, e := range t.Entries {
		existing[e] = true
	}

	var added []domain.MappingEntry
	seen := make(map[domain.MappingEntry]bool)
	for _, tx := range txns {
		entry := domain.MappingEntry{
			Category: strings.TrimSpace(tx.Category),
			Keyword:  domain.NormalizeDescription(tx.Description),
		}
		if entry.Category == "" || entry.Keyword == "" || seen[entry] {
			continue
		}
		seen[entry] = true
		if existing[entry] {
			continue
		}
		if m, ok := index.Match(entry.Keyword); ok && m.Category == entry.Category {
			continue
		}
		added = append(added, entry)
	}

	t.Entries = append(t.Entries, added...)
	t.Dedup()
	return added
}

// Index groups the table by category for matching.
func (t *Table) Index(policy string) *Index {
	ix := &Index{
		keywords: make(map[string][]string),
		longest:  policy == config.KeywordLongest,
	}
	for _, e := range t.Entries {
		if _, ok := ix.keywords[e.Category]; !ok {
			ix.categories = append(ix.categories, e.Category)
		}
		ix.keywords[e.Category] = append(ix.keywords[e.Category], e.Keyword)
	}
	sort.Strings(ix.categories)
	return ix
}

// Index is the category → keywords view of a Table. Categories are visited in
// sorted order and keywords in file order.
type Index struct {
	categories []string
	keywords   map[string][]string
	longest    bool
}

// Match is the result of a keyword scan.
type Match struct {
	Category string
	Keyword  string
}

// Categories returns the category names in match order.
func (ix *Index) Categories() []string {
	out := make([]string, len(ix.categories))
	copy(out, ix.categories)
	return out
}

// Keywords returns the keywords of category in file order.
func (ix *Index) Keywords(category string) []string {
	return ix.keywords[category]
}

// Match finds the category of the first keyword contained in the lowercased
// description. With the longest policy the longest contained keyword wins
// and equal lengths keep the earlier one.
func (ix *Index) Match(description string) (Match, bool) {
	dl := strings.ToLower(description)

	var best Match
	found := false
	for _, category := range ix.categories {
		for _, kw := range ix.keywords[category] {
			if !strings.Contains(dl, kw) {
				continue
			}
			if !ix.longest {
				return Match{Category: category, Keyword: kw}, true
			}
			if !found || len(kw) > len(best.Keyword) {
				best = Match{Category: category, Keyword: kw}
				found = true
			}
		}
	}
	return best, found
}

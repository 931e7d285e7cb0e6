package categorizer

import (
	"strings"

	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/mapping"
)

// Source tells where a category assignment came from.
type Source string

const (
	// SourceHistory means the description was found in the master ledger.
	SourceHistory Source = "history"
	// SourceKeyword means a mapping keyword matched the description.
	SourceKeyword Source = "keyword"
	// SourceDefault means nothing matched and the default category was used.
	SourceDefault Source = "default"
)

// Categorizer assigns categories: history memory first, then the keyword
// index, then the default category.
type Categorizer struct {
	history         *History
	index           *mapping.Index
	fixed           map[string]bool
	defaultCategory string
}

// New creates a Categorizer. A nil history or index is treated as empty.
func New(history *History, index *mapping.Index, cfg *config.Config) *Categorizer {
	if history == nil {
		history = &History{}
	}
	if index == nil {
		index = (&mapping.Table{}).Index(cfg.KeywordPolicy)
	}
	return &Categorizer{
		history:         history,
		index:           index,
		fixed:           cfg.FixedSet(),
		defaultCategory: cfg.DefaultCategory,
	}
}

// Categorize fills the category fields of tx and reports which rule decided.
func (c *Categorizer) Categorize(tx *domain.Transaction) Source {
	source := SourceDefault
	category := c.defaultCategory

	if cat, ok := c.history.Lookup(tx.Description); ok {
		category, source = cat, SourceHistory
	} else if m, ok := c.index.Match(tx.Description); ok {
		category, source = m.Category, SourceKeyword
	}

	tx.Category = category
	tx.TypeTransaction = domain.TypeExpense
	tx.TypeExpense = c.ExpenseType(category)
	return source
}

// CategorizeAll categorizes txns in place and counts assignments per source.
func (c *Categorizer) CategorizeAll(txns []domain.Transaction) map[Source]int {
	counts := make(map[Source]int, 3)
	for i := range txns {
		counts[c.Categorize(&txns[i])]++
	}
	return counts
}

// ExpenseType returns Fixed for the configured fixed categories, Variable otherwise.
func (c *Categorizer) ExpenseType(category string) string {
	if c.fixed[strings.TrimSpace(category)] {
		return domain.ExpenseFixed
	}
	return domain.ExpenseVariable
}

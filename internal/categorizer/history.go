package categorizer

import (
	"strings"

	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/domain"
)

// History remembers the category last given to each description in the
// master ledger, keyed by the normalized description.
type History struct {
	categories map[string]string
}

type remembered struct {
	category string
	row      domain.Transaction
}

// NewHistory builds the memory from ledger rows. Rows without a description
// or a category are ignored. When a description appears more than once,
// policy decides: HistoryFirst keeps the first row in ledger order,
// HistoryLatest keeps the row with the most recent date (rows without a date
// rank oldest) and falls back to the first row on equal dates.
func NewHistory(ledger []domain.Transaction, policy string) *History {
	picked := make(map[string]remembered)
	for _, row := range ledger {
		key := domain.NormalizeDescription(row.Description)
		category := strings.TrimSpace(row.Category)
		if key == "" || category == "" {
			continue
		}

		current, seen := picked[key]
		if !seen || (policy == config.HistoryLatest && newer(row, current.row)) {
			picked[key] = remembered{category: category, row: row}
		}
	}

	h := &History{categories: make(map[string]string, len(picked))}
	for key, r := range picked {
		h.categories[key] = r.category
	}
	return h
}

func newer(a, b domain.Transaction) bool {
	switch {
	case !a.HasDate():
		return false
	case !b.HasDate():
		return true
	default:
		return a.Date.After(b.Date)
	}
}

// Lookup returns the remembered category of description.
func (h *History) Lookup(description string) (string, bool) {
	if h == nil || h.categories == nil {
		return "", false
	}
	cat, ok := h.categories[domain.NormalizeDescription(description)]
	return cat, ok
}

// Len returns the number of remembered descriptions.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.categories)
}

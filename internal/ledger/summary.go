package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/expense-tracker/internal/domain"
)

// CategorySummary totals the ledger rows of one category.
type CategorySummary struct {
	Category    string
	TypeExpense string
	Count       int
	Total       decimal.Decimal
}

// Summary is the per-category view of a ledger.
type Summary struct {
	Categories []CategorySummary
	Fixed      decimal.Decimal
	Variable   decimal.Decimal
	Undated    int
}

// Summarize groups rows by category. Categories are ordered by descending
// total, then by name.
func Summarize(rows []domain.Transaction) Summary {
	var s Summary
	byCategory := make(map[string]*CategorySummary)
	for _, tx := range rows {
		c, ok := byCategory[tx.Category]
		if !ok {
			c = &CategorySummary{Category: tx.Category, TypeExpense: tx.TypeExpense}
			byCategory[tx.Category] = c
		}
		c.Count++
		c.Total = c.Total.Add(tx.Amount)

		if tx.TypeExpense == domain.ExpenseFixed {
			s.Fixed = s.Fixed.Add(tx.Amount)
		} else {
			s.Variable = s.Variable.Add(tx.Amount)
		}
		if !tx.HasDate() {
			s.Undated++
		}
	}

	for _, c := range byCategory {
		s.Categories = append(s.Categories, *c)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		a, b := s.Categories[i], s.Categories[j]
		if cmp := a.Total.Cmp(b.Total); cmp != 0 {
			return cmp > 0
		}
		return a.Category < b.Category
	})
	return s
}

package categorizer

import (
	"testing"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/mapping"
)

func day(d int) civil.Date {
	return civil.Date{Year: 2024, Month: 1, Day: d}
}

func TestNewHistory(t *testing.T) {
	ledger := []domain.Transaction{
		{Date: day(3), Description: "Netflix", Category: "Streaming"},
		{Date: day(10), Description: "NETFLIX ", Category: "Entertainment"},
		{Date: day(10), Description: "netflix", Category: "Movies"},
		{Description: "netflix", Category: "Undated"},
		{Date: day(1), Description: "", Category: "Ignored"},
		{Date: day(1), Description: "Corner shop", Category: ""},
	}

	t.Run("first", func(t *testing.T) {
		h := NewHistory(ledger, config.HistoryFirst)
		if cat, _ := h.Lookup("Netflix"); cat != "Streaming" {
			t.Errorf("Lookup = %q, want Streaming", cat)
		}
	})

	t.Run("latest", func(t *testing.T) {
		h := NewHistory(ledger, config.HistoryLatest)
		if cat, _ := h.Lookup("  NETFLIX"); cat != "Entertainment" {
			t.Errorf("Lookup = %q, want Entertainment", cat)
		}
	})

	t.Run("incomplete rows skipped", func(t *testing.T) {
		h := NewHistory(ledger, config.HistoryLatest)
		if _, ok := h.Lookup("corner shop"); ok {
			t.Error("row without category should not be remembered")
		}
		if h.Len() != 1 {
			t.Errorf("Len = %d, want 1", h.Len())
		}
	})

	t.Run("undated row only", func(t *testing.T) {
		h := NewHistory([]domain.Transaction{
			{Description: "kiosk", Category: "Snacks"},
			{Date: day(2), Description: "kiosk", Category: "Newspapers"},
		}, config.HistoryLatest)
		if cat, _ := h.Lookup("kiosk"); cat != "Newspapers" {
			t.Errorf("Lookup = %q, want Newspapers", cat)
		}
	})
}

func TestHistoryNil(t *testing.T) {
	var h *History
	if _, ok := h.Lookup("x"); ok {
		t.Error("nil history should not match")
	}
	if h.Len() != 0 {
		t.Error("nil history should be empty")
	}
}

func TestCategorize(t *testing.T) {
	cfg := config.Default()
	table := &mapping.Table{Entries: []domain.MappingEntry{
		{Category: "Groceries", Keyword: "whole foods"},
		{Category: "Transport", Keyword: "uber"},
	}}
	history := NewHistory([]domain.Transaction{
		{Date: day(1), Description: "Whole Foods Cafe", Category: "Restaurants"},
	}, cfg.HistoryPolicy)
	c := New(history, table.Index(cfg.KeywordPolicy), cfg)

	tests := []struct {
		name        string
		description string
		category    string
		expense     string
		source      Source
	}{
		{"history wins over keyword", "WHOLE FOODS CAFE", "Restaurants", domain.ExpenseVariable, SourceHistory},
		{"keyword fallback", "WHOLE FOODS 123", "Groceries", domain.ExpenseFixed, SourceKeyword},
		{"keyword variable", "Uber *Trip", "Transport", domain.ExpenseVariable, SourceKeyword},
		{"default", "Amazon Marketplace", "Other", domain.ExpenseVariable, SourceDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := domain.Transaction{Description: tt.description}
			source := c.Categorize(&tx)
			if tx.Category != tt.category {
				t.Errorf("Category = %q, want %q", tx.Category, tt.category)
			}
			if tx.TypeExpense != tt.expense {
				t.Errorf("TypeExpense = %q, want %q", tx.TypeExpense, tt.expense)
			}
			if tx.TypeTransaction != domain.TypeExpense {
				t.Errorf("TypeTransaction = %q, want Expense", tx.TypeTransaction)
			}
			if source != tt.source {
				t.Errorf("source = %q, want %q", source, tt.source)
			}
		})
	}
}

func TestCategorizeAll(t *testing.T) {
	cfg := config.Default()
	c := New(nil, nil, cfg)

	txns := []domain.Transaction{{Description: "a"}, {Description: "b"}}
	counts := c.CategorizeAll(txns)

	if counts[SourceDefault] != 2 {
		t.Errorf("default count = %d, want 2", counts[SourceDefault])
	}
	for _, tx := range txns {
		if tx.Category != "Other" || tx.TypeExpense != domain.ExpenseVariable {
			t.Errorf("tx = %+v", tx)
		}
	}
}

func TestExpenseType(t *testing.T) {
	c := New(nil, nil, config.Default())
	for _, cat := range []string{"Rent", "Wi-Fi", "Phone Subscription", "Insurance", "Insurance Savings", "Gym Subscription", "Groceries"} {
		if got := c.ExpenseType(cat); got != domain.ExpenseFixed {
			t.Errorf("ExpenseType(%q) = %q, want Fixed", cat, got)
		}
	}
	for _, cat := range []string{"Other", "Restaurants", "rent", ""} {
		if got := c.ExpenseType(cat); got != domain.ExpenseVariable {
			t.Errorf("ExpenseType(%q) = %q, want Variable", cat, got)
		}
	}
}

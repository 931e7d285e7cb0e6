package suggest

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/mapping"
)

// mockModel is a mock implementation of Model for testing.
type mockModel struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	prompts      []string
}

func (m *mockModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.GenerateFunc(ctx, prompt)
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"bare fence", "```\n[]\n```", `[]`},
		{"prose", "Here you go:\n[{\"a\":1}]\nHope this helps", `[{"a":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUncategorized(t *testing.T) {
	rows := []domain.Transaction{
		{Description: "MYSTERY SHOP", Category: "Other"},
		{Description: " mystery shop", Category: "Other"},
		{Description: "WHOLE FOODS", Category: "Groceries"},
		{Description: "ACME", Category: "Other"},
		{Description: "  ", Category: "Other"},
	}
	got := Uncategorized(rows, "Other")
	want := []string{"acme", "mystery shop"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Uncategorized = %v, want %v", got, want)
	}
}

func TestSuggest(t *testing.T) {
	model := &mockModel{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "```json\n" + `[
			{"description": "ACME", "category": "Groceries"},
			{"description": "acme", "category": "Rent"},
			{"description": "mystery shop", "category": "Shopping"},
			{"description": "netflix", "category": "Groceries"},
			{"description": "gym 24", "category": "Other"},
			{"description": "uber", "category": "Transport"}
		]` + "\n```", nil
	}}

	got, err := New(model).Suggest(context.Background(),
		[]string{"acme", "mystery shop", "gym 24", "uber"},
		[]string{"Groceries", "Rent", "Transport", "Other"},
		"Other")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	want := []Suggestion{
		{Description: "acme", Category: "Groceries"},
		{Description: "uber", Category: "Transport"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest = %+v, want %+v", got, want)
	}

	prompt := model.prompts[0]
	for _, s := range []string{"- Groceries", "- mystery shop", "STRICT JSON"} {
		if !strings.Contains(prompt, s) {
			t.Errorf("prompt missing %q", s)
		}
	}
}

func TestSuggestNothingToAsk(t *testing.T) {
	model := &mockModel{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
		t.Error("model should not be called")
		return "", nil
	}}
	got, err := New(model).Suggest(context.Background(), nil, []string{"Rent"}, "Other")
	if err != nil || got != nil {
		t.Errorf("Suggest = %v, %v", got, err)
	}
}

func TestSuggestErrors(t *testing.T) {
	tests := []struct {
		name       string
		categories []string
		generate   func(ctx context.Context, prompt string) (string, error)
	}{
		{"no categories", nil, func(ctx context.Context, prompt string) (string, error) { return "[]", nil }},
		{"model error", []string{"Rent"}, func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("quota exceeded")
		}},
		{"bad json", []string{"Rent"}, func(ctx context.Context, prompt string) (string, error) {
			return "I cannot help with that", nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&mockModel{GenerateFunc: tt.generate}).Suggest(context.Background(), []string{"acme"}, tt.categories, "Other")
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSuggestionEntry(t *testing.T) {
	e := Suggestion{Description: " ACME ", Category: "Groceries"}.Entry()
	if e != (domain.MappingEntry{Category: "Groceries", Keyword: "acme"}) {
		t.Errorf("Entry = %+v", e)
	}
}

func TestApply(t *testing.T) {
	table := &mapping.Table{Entries: []domain.MappingEntry{
		{Category: "Other", Keyword: "acme"},
		{Category: "Other", Keyword: "kiosk"},
		{Category: "Transport", Keyword: "uber"},
	}}
	rows := []domain.Transaction{
		{Description: "ACME", Category: "Other", TypeExpense: domain.ExpenseVariable},
		{Description: "acme", Category: "Dining", TypeExpense: domain.ExpenseVariable},
		{Description: "KIOSK", Category: "Other", TypeExpense: domain.ExpenseVariable},
		{Description: "NEW PLACE", Category: "Other", TypeExpense: domain.ExpenseVariable},
	}
	suggestions := []Suggestion{
		{Description: "acme", Category: "Groceries"},
		{Description: "new place", Category: "Rent"},
	}
	expenseType := func(category string) string {
		if category == "Groceries" || category == "Rent" {
			return domain.ExpenseFixed
		}
		return domain.ExpenseVariable
	}

	changed := Apply(table, rows, suggestions, "Other", expenseType)
	if changed != 2 {
		t.Errorf("changed = %d, want 2", changed)
	}
	if rows[0].Category != "Groceries" || rows[0].TypeExpense != domain.ExpenseFixed {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Category != "Dining" {
		t.Errorf("row outside the default category changed: %+v", rows[1])
	}
	if rows[2].Category != "Other" || rows[3].Category != "Rent" {
		t.Errorf("rows = %+v", rows)
	}

	want := []domain.MappingEntry{
		{Category: "Groceries", Keyword: "acme"},
		{Category: "Other", Keyword: "kiosk"},
		{Category: "Transport", Keyword: "uber"},
		{Category: "Rent", Keyword: "new place"},
	}
	if !reflect.DeepEqual(table.Entries, want) {
		t.Errorf("Entries = %+v, want %+v", table.Entries, want)
	}
}

// Package suggest asks a Gemini model to categorize ledger rows that fell
// through to the default category.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/mapping"
)

// Model generates text for a prompt.
// This interface enables mocking and testing of the model call.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiModel is the Model backed by the Gemini API.
type GeminiModel struct {
	client *genai.Client
	name   string
}

// NewGeminiModel creates a Gemini client. Credentials come from the
// environment (GOOGLE_API_KEY, or Vertex AI settings).
func NewGeminiModel(ctx context.Context, name string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiModel: create genai client: %w", err)
	}
	return &GeminiModel{client: client, name: name}, nil
}

// Generate implements Model.
func (m *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.name, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Generate: empty response from model")
	}
	return text, nil
}

// Suggestion proposes a category for a description.
type Suggestion struct {
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Entry returns the mapping entry that would apply the suggestion.
func (s Suggestion) Entry() domain.MappingEntry {
	return domain.MappingEntry{Category: s.Category, Keyword: domain.NormalizeDescription(s.Description)}
}

// Suggester turns uncategorized rows into suggestions.
type Suggester struct {
	model Model
}

// New creates a Suggester using model.
func New(model Model) *Suggester {
	return &Suggester{model: model}
}

// Uncategorized returns the distinct normalized descriptions of the rows
// filed under defaultCategory, sorted.
func Uncategorized(rows []domain.Transaction, defaultCategory string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tx := range rows {
		if tx.Category != defaultCategory {
			continue
		}
		desc := domain.NormalizeDescription(tx.Description)
		if desc == "" || seen[desc] {
			continue
		}
		seen[desc] = true
		out = append(out, desc)
	}
	sort.Strings(out)
	return out
}

// Suggest asks the model to file each description under one of categories.
// Answers naming an unknown category, the default category or a description
// that was not asked about are dropped.
func (s *Suggester) Suggest(ctx context.Context, descriptions, categories []string, defaultCategory string) ([]Suggestion, error) {
	if len(descriptions) == 0 {
		return nil, nil
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("Suggest: no categories to choose from")
	}

	raw, err := s.model.Generate(ctx, buildPrompt(descriptions, categories))
	if err != nil {
		return nil, fmt.Errorf("Suggest: %w", err)
	}

	var parsed []Suggestion
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("Suggest: unmarshal JSON: %w\nraw response: %s", err, raw)
	}

	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c] = true
	}
	asked := make(map[string]bool, len(descriptions))
	for _, d := range descriptions {
		asked[d] = true
	}

	log := logger.FromContext(ctx)
	var out []Suggestion
	answered := make(map[string]bool)
	for _, p := range parsed {
		desc := domain.NormalizeDescription(p.Description)
		category := strings.TrimSpace(p.Category)
		switch {
		case !asked[desc] || answered[desc]:
			log.Debug().Str("description", p.Description).Msg("dropping suggestion for unknown description")
			continue
		case !known[category] || category == defaultCategory:
			log.Debug().Str("description", desc).Str("category", category).Msg("dropping suggestion with unknown category")
			continue
		}
		answered[desc] = true
		out = append(out, Suggestion{Description: desc, Category: category})
	}
	return out, nil
}

// Apply files the suggested descriptions under their new category. Ledger
// rows still under defaultCategory are recategorized, since history wins over
// keywords on later runs, and the mapping entries that pointed the keyword at
// defaultCategory are re-pointed. It returns the number of ledger rows changed.
func Apply(table *mapping.Table, rows []domain.Transaction, suggestions []Suggestion, defaultCategory string, expenseType func(string) string) int {
	byDesc := make(map[string]string, len(suggestions))
	for _, s := range suggestions {
		byDesc[domain.NormalizeDescription(s.Description)] = s.Category
	}

	changed := 0
	for i := range rows {
		if rows[i].Category != defaultCategory {
			continue
		}
		category, ok := byDesc[domain.NormalizeDescription(rows[i].Description)]
		if !ok {
			continue
		}
		rows[i].Category = category
		rows[i].TypeExpense = expenseType(category)
		changed++
	}

	for i, e := range table.Entries {
		if category, ok := byDesc[e.Keyword]; ok && e.Category == defaultCategory {
			table.Entries[i].Category = category
		}
	}
	for _, s := range suggestions {
		if e := s.Entry(); !table.Contains(e) {
			table.Entries = append(table.Entries, e)
		}
	}
	table.Dedup()
	return changed
}

func buildPrompt(descriptions, categories []string) string {
	var b strings.Builder
	b.WriteString("You categorize personal card expenses.\n\n")
	b.WriteString("Use ONLY the following categories:\n")
	for _, c := range categories {
		b.WriteString("  - " + c + "\n")
	}
	b.WriteString("\nExpense descriptions:\n")
	for _, d := range descriptions {
		b.WriteString("  - " + d + "\n")
	}
	b.WriteString("\nRules:\n" +
		"- Output STRICT JSON only: an array of objects with \"description\" and \"category\".\n" +
		"- Copy each description exactly as given.\n" +
		"- Category must be EXACTLY one of the names above (case-sensitive).\n" +
		"- Leave out descriptions you are unsure about.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Output must begin with \"[\" and end with \"]\".\n")
	return b.String()
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost JSON array if the model added prose around it.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

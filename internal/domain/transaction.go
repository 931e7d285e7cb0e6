package domain

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

const (
	// TypeExpense is the only transaction type produced by the importer.
	TypeExpense = "Expense"

	// ExpenseFixed marks a recurring fixed-cost category.
	ExpenseFixed = "Fixed"

	// ExpenseVariable marks every category that is not fixed.
	ExpenseVariable = "Variable"

	// DefaultCategory is assigned when neither history nor keywords match.
	DefaultCategory = "Other"
)

// Transaction represents one ledger row: an imported card transaction plus its
// category assignment. A Date that is not valid is the null date produced when
// the export carries an unparseable value.
type Transaction struct {
	Date        civil.Date      // date-only, zero when unparseable
	Description string          // free text as exported
	Amount      decimal.Decimal // positive = expense
	Origin      string          // source institution tag, e.g. "Amex"

	Category        string // assigned category label
	TypeTransaction string // always TypeExpense for imported rows
	TypeExpense     string // ExpenseFixed or ExpenseVariable
}

// HasDate reports whether the transaction carries a parseable date.
func (t Transaction) HasDate() bool {
	return t.Date.IsValid()
}

// Key returns the identity used to de-duplicate ledger rows:
// (date, description, amount, origin), normalized so that rows read back from
// the workbook compare equal to freshly imported ones.
func (t Transaction) Key() string {
	date := ""
	if t.HasDate() {
		date = t.Date.String()
	}
	return strings.Join([]string{
		date,
		NormalizeDescription(t.Description),
		t.Amount.String(),
		strings.TrimSpace(t.Origin),
	}, "\x1f")
}

// NormalizeDescription lowercases and trims a description. The result is used
// as the history memory key and as the keyword learned for the mapping table.
func NormalizeDescription(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MappingEntry is one row of the keyword → category table.
type MappingEntry struct {
	Category string
	Keyword  string // lowercase substring
}

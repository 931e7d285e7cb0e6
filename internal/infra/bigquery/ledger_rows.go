package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/expense-tracker/internal/domain"
)

// transactionNamespace seeds the name-based transaction IDs so the same
// ledger row always maps to the same ID.
var transactionNamespace = uuid.MustParse("6f1f5c9e-3b7a-4c59-9a43-8f0f7d2c1e55")

// LedgerRow is one master ledger row as stored in BigQuery.
type LedgerRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED, UUIDv5 of the dedup key
	RunID         string `bigquery:"run_id"`         // REQUIRED

	TransactionDate bigquery.NullDate `bigquery:"transaction_date"` // NULLABLE
	Description     string            `bigquery:"description"`      // REQUIRED
	Amount          *big.Rat          `bigquery:"amount"`           // REQUIRED NUMERIC
	Origin          string            `bigquery:"origin"`           // REQUIRED

	Category        string `bigquery:"category"`
	TypeTransaction string `bigquery:"type_transaction"`
	TypeExpense     string `bigquery:"type_expense"`

	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// TransactionID returns the stable ID of a ledger row.
func TransactionID(tx domain.Transaction) string {
	return uuid.NewSHA1(transactionNamespace, []byte(tx.Key())).String()
}

// ToLedgerRow converts a ledger transaction.
func ToLedgerRow(tx domain.Transaction, runID string, exported time.Time) *LedgerRow {
	return &LedgerRow{
		TransactionID:   TransactionID(tx),
		RunID:           runID,
		TransactionDate: bigquery.NullDate{Date: tx.Date, Valid: tx.HasDate()},
		Description:     tx.Description,
		Amount:          tx.Amount.Rat(),
		Origin:          tx.Origin,
		Category:        tx.Category,
		TypeTransaction: tx.TypeTransaction,
		TypeExpense:     tx.TypeExpense,
		ExportedTS:      exported.UTC(),
	}
}

// ToLedgerRows converts txns, stamping them with runID and the same export time.
func ToLedgerRows(txns []domain.Transaction, runID string, exported time.Time) []*LedgerRow {
	rows := make([]*LedgerRow, len(txns))
	for i, tx := range txns {
		rows[i] = ToLedgerRow(tx, runID, exported)
	}
	return rows
}

// CategoryTotal is one line of the per-category spending summary.
type CategoryTotal struct {
	Category    string   `bigquery:"category"`
	TypeExpense string   `bigquery:"type_expense"`
	Count       int64    `bigquery:"n"`
	Total       *big.Rat `bigquery:"total"`
}

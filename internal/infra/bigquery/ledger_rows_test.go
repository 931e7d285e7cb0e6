package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/expense-tracker/internal/domain"
)

func sampleTx() domain.Transaction {
	return domain.Transaction{
		Date:            civil.Date{Year: 2024, Month: 5, Day: 1},
		Description:     "WHOLE FOODS 123",
		Amount:          decimal.RequireFromString("12.50"),
		Origin:          "Amex",
		Category:        "Groceries",
		TypeTransaction: domain.TypeExpense,
		TypeExpense:     domain.ExpenseFixed,
	}
}

func TestToLedgerRow(t *testing.T) {
	exported := time.Date(2024, 5, 2, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	row := ToLedgerRow(sampleTx(), "run-1", exported)

	if row.RunID != "run-1" || row.Description != "WHOLE FOODS 123" || row.Origin != "Amex" {
		t.Errorf("row = %+v", row)
	}
	if !row.TransactionDate.Valid || row.TransactionDate.Date != (civil.Date{Year: 2024, Month: 5, Day: 1}) {
		t.Errorf("TransactionDate = %+v", row.TransactionDate)
	}
	if row.Amount.Cmp(big.NewRat(25, 2)) != 0 {
		t.Errorf("Amount = %s, want 25/2", row.Amount)
	}
	if row.Category != "Groceries" || row.TypeExpense != domain.ExpenseFixed || row.TypeTransaction != domain.TypeExpense {
		t.Errorf("category fields = %+v", row)
	}
	if row.ExportedTS.Location() != time.UTC || !row.ExportedTS.Equal(exported) {
		t.Errorf("ExportedTS = %v", row.ExportedTS)
	}
}

func TestToLedgerRowNullDate(t *testing.T) {
	tx := sampleTx()
	tx.Date = civil.Date{}
	if row := ToLedgerRow(tx, "run-1", time.Now()); row.TransactionDate.Valid {
		t.Errorf("TransactionDate = %+v, want NULL", row.TransactionDate)
	}
}

func TestTransactionIDStable(t *testing.T) {
	a := sampleTx()
	b := sampleTx()
	b.Description = "  whole foods 123 "
	b.Amount = decimal.RequireFromString("12.5")
	b.Category = "Dining"

	if TransactionID(a) != TransactionID(b) {
		t.Error("rows with the same dedup key got different IDs")
	}

	c := sampleTx()
	c.Origin = "Visa"
	if TransactionID(a) == TransactionID(c) {
		t.Error("rows with different origins share an ID")
	}
}

func TestToLedgerRows(t *testing.T) {
	exported := time.Now()
	rows := ToLedgerRows([]domain.Transaction{sampleTx(), sampleTx()}, "run-2", exported)
	if len(rows) != 2 {
		t.Fatalf("len = %d", len(rows))
	}
	for _, r := range rows {
		if r.RunID != "run-2" || !r.ExportedTS.Equal(exported) {
			t.Errorf("row = %+v", r)
		}
	}
}

func TestLedgerSchema(t *testing.T) {
	schema, err := LedgerSchema()
	if err != nil {
		t.Fatalf("LedgerSchema: %v", err)
	}

	want := map[string]bigquery.FieldType{
		"transaction_id":   bigquery.StringFieldType,
		"transaction_date": bigquery.DateFieldType,
		"amount":           bigquery.NumericFieldType,
		"exported_ts":      bigquery.TimestampFieldType,
	}
	got := make(map[string]*bigquery.FieldSchema, len(schema))
	for _, f := range schema {
		got[f.Name] = f
	}
	for name, typ := range want {
		f, ok := got[name]
		if !ok {
			t.Errorf("missing field %q", name)
			continue
		}
		if f.Type != typ {
			t.Errorf("%s type = %s, want %s", name, f.Type, typ)
		}
	}
	if got["transaction_date"] != nil && got["transaction_date"].Required {
		t.Error("transaction_date should be nullable")
	}
}

func TestSaversUseTransactionID(t *testing.T) {
	schema, err := LedgerSchema()
	if err != nil {
		t.Fatal(err)
	}
	rows := ToLedgerRows([]domain.Transaction{sampleTx()}, "run-1", time.Now())
	s := savers(rows, schema)
	if len(s) != 1 || s[0].InsertID != rows[0].TransactionID {
		t.Errorf("savers = %+v", s)
	}
}

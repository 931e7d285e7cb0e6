// Package bigquery exports the master ledger to a BigQuery table.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/dvloznov/expense-tracker/internal/domain"
)

// Exporter streams ledger rows into one table. It holds a shared BigQuery
// client; call Close when done.
type Exporter struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
	now     func() time.Time
}

// NewExporter creates an Exporter for project.dataset.table. An empty
// credentialsFile uses Application Default Credentials.
func NewExporter(ctx context.Context, project, dataset, table, credentialsFile string) (*Exporter, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: creating client: %w", err)
	}
	return &Exporter{
		client:  client,
		project: project,
		dataset: dataset,
		table:   table,
		now:     time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Table returns the fully qualified table name.
func (e *Exporter) Table() string {
	return fmt.Sprintf("%s.%s.%s", e.project, e.dataset, e.table)
}

// EnsureTable creates the destination table if needed.
func (e *Exporter) EnsureTable(ctx context.Context) error {
	return EnsureTableWithClient(ctx, e.client, e.project, e.dataset, e.table)
}

// Export creates the table when missing and streams txns into it. It returns
// the number of rows sent.
func (e *Exporter) Export(ctx context.Context, runID string, txns []domain.Transaction) (int, error) {
	if err := e.EnsureTable(ctx); err != nil {
		return 0, err
	}
	rows := ToLedgerRows(txns, runID, e.now())
	if err := InsertLedgerRowsWithClient(ctx, e.client, e.project, e.dataset, e.table, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// CategoryTotals summarizes the exported ledger per category.
func (e *Exporter) CategoryTotals(ctx context.Context) ([]*CategoryTotal, error) {
	return QueryCategoryTotalsWithClient(ctx, e.client, e.project, e.dataset, e.table)
}

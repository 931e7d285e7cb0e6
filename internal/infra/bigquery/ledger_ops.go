package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// insertBatchSize bounds a single streaming insert request.
const insertBatchSize = 500

// LedgerSchema is the table schema inferred from LedgerRow.
func LedgerSchema() (bigquery.Schema, error) {
	schema, err := bigquery.InferSchema(LedgerRow{})
	if err != nil {
		return nil, fmt.Errorf("LedgerSchema: %w", err)
	}
	return schema, nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// EnsureTableWithClient creates the ledger table, partitioned by transaction
// date, when it does not exist yet.
func EnsureTableWithClient(ctx context.Context, client *bigquery.Client, project, dataset, table string) error {
	t := client.DatasetInProject(project, dataset).Table(table)
	_, err := t.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("EnsureTable: reading metadata: %w", err)
	}

	schema, err := LedgerSchema()
	if err != nil {
		return err
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.MonthPartitioningType,
			Field: "transaction_date",
		},
	}
	if err := t.Create(ctx, meta); err != nil {
		return fmt.Errorf("EnsureTable: creating %s.%s: %w", dataset, table, err)
	}
	return nil
}

// InsertLedgerRowsWithClient streams rows into the ledger table. Each row is
// sent with its transaction ID as insert ID so retried inserts are
// de-duplicated by BigQuery on a best-effort basis.
func InsertLedgerRowsWithClient(ctx context.Context, client *bigquery.Client, project, dataset, table string, rows []*LedgerRow) error {
	if len(rows) == 0 {
		return nil
	}

	schema, err := LedgerSchema()
	if err != nil {
		return err
	}

	inserter := client.DatasetInProject(project, dataset).Table(table).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := inserter.Put(ctx, savers(rows[start:end], schema)); err != nil {
			return fmt.Errorf("InsertLedgerRows: inserting rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func savers(rows []*LedgerRow, schema bigquery.Schema) []*bigquery.StructSaver {
	out := make([]*bigquery.StructSaver, len(rows))
	for i, r := range rows {
		out[i] = &bigquery.StructSaver{Struct: r, Schema: schema, InsertID: r.TransactionID}
	}
	return out
}

// QueryCategoryTotalsWithClient sums the ledger table per category. Rows
// exported more than once are counted once.
func QueryCategoryTotalsWithClient(ctx context.Context, client *bigquery.Client, project, dataset, table string) ([]*CategoryTotal, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			category,
			type_expense,
			COUNT(*) AS n,
			SUM(amount) AS total
		FROM (
			SELECT *
			FROM `+"`%s.%s.%s`"+`
			WHERE TRUE
			QUALIFY ROW_NUMBER() OVER (PARTITION BY transaction_id ORDER BY exported_ts DESC) = 1
		)
		GROUP BY category, type_expense
		ORDER BY total DESC
	`, project, dataset, table))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryCategoryTotals: query read: %w", err)
	}

	var rows []*CategoryTotal
	for {
		var r CategoryTotal
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryCategoryTotals: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

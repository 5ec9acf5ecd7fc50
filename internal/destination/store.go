package destination

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"go-glidesync/internal/database"

	"github.com/lib/pq"
)

// RowIDColumn is the column every synced table carries to mirror Glide's
// row identity. It is the upsert conflict key, so the recommended schema
// declares it UNIQUE.
const RowIDColumn = "glide_row_id"

// Store is the destination-side surface the sync engine and the
// relationship resolver depend on.
type Store interface {
	// GetTableColumns returns the live column names of a table, used by
	// the mapping validator.
	GetTableColumns(ctx context.Context, table string) ([]string, error)

	// UpsertRows writes a batch in one statement keyed on glide_row_id.
	UpsertRows(ctx context.Context, table string, rows []map[string]interface{}) error

	// UpsertRow writes a single row, used for per-row fallback isolation
	// when a batch statement fails.
	UpsertRow(ctx context.Context, table string, row map[string]interface{}) error

	// HasRowID reports whether a row with the given glide_row_id exists.
	HasRowID(ctx context.Context, table, rowID string) (bool, error)

	// CountRows returns the number of rows in a table.
	CountRows(ctx context.Context, table string) (int64, error)

	// FetchRows pages through a table for push-to-source syncs.
	FetchRows(ctx context.Context, table string, limit, offset int) ([]map[string]interface{}, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewStore(pg *database.PostgresDB) Store {
	return &PostgresStore{db: pg.DB}
}

func (s *PostgresStore) GetTableColumns(ctx context.Context, table string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := s.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		columns = append(columns, name)
	}

	return columns, rows.Err()
}

func (s *PostgresStore) UpsertRows(ctx context.Context, table string, rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	query, args, err := buildUpsertQuery(table, rows)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) UpsertRow(ctx context.Context, table string, row map[string]interface{}) error {
	return s.UpsertRows(ctx, table, []map[string]interface{}{row})
}

func (s *PostgresStore) HasRowID(ctx context.Context, table, rowID string) (bool, error) {
	query := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)",
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(RowIDColumn),
	)

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, rowID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up %s in %s: %w", rowID, table, err)
	}
	return exists, nil
}

func (s *PostgresStore) CountRows(ctx context.Context, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(table))

	var count int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

func (s *PostgresStore) FetchRows(ctx context.Context, table string, limit, offset int) ([]map[string]interface{}, error) {
	query := fmt.Sprintf(
		"SELECT * FROM %s ORDER BY %s LIMIT %d OFFSET %d",
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(RowIDColumn), limit, offset,
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", table, err)
	}
	defer rows.Close()

	return rowsToMaps(rows)
}

// buildUpsertQuery produces a single multi-row INSERT ... ON CONFLICT
// statement. The column set is the union across the batch; rows missing a
// column insert NULL for it. glide_row_id must be present in every row.
func buildUpsertQuery(table string, rows []map[string]interface{}) (string, []interface{}, error) {
	columnSet := map[string]bool{}
	for _, row := range rows {
		if _, ok := row[RowIDColumn]; !ok {
			return "", nil, fmt.Errorf("row missing %s column", RowIDColumn)
		}
		for col := range row {
			columnSet[col] = true
		}
	}

	columns := make([]string, 0, len(columnSet))
	for col := range columnSet {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	updateExprs := []string{}
	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
		if col != RowIDColumn {
			updateExprs = append(updateExprs, fmt.Sprintf("%s = EXCLUDED.%s", quoted[i], quoted[i]))
		}
	}

	var args []interface{}
	valueTuples := make([]string, len(rows))
	for i, row := range rows {
		placeholders := make([]string, len(columns))
		for j, col := range columns {
			args = append(args, normalizeValue(row[col]))
			placeholders[j] = fmt.Sprintf("$%d", len(args))
		}
		valueTuples[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	conflictAction := "DO NOTHING"
	if len(updateExprs) > 0 {
		conflictAction = "DO UPDATE SET " + strings.Join(updateExprs, ", ")
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) %s",
		pq.QuoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(valueTuples, ", "),
		pq.QuoteIdentifier(RowIDColumn),
		conflictAction,
	)

	return query, args, nil
}

// normalizeValue maps values the driver cannot bind directly.
func normalizeValue(v interface{}) interface{} {
	if oid, ok := v.(interface{ Hex() string }); ok {
		return oid.Hex()
	}
	return v
}

func rowsToMaps(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []map[string]interface{}{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}

		result = append(result, row)
	}

	return result, rows.Err()
}

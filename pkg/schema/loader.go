package schema

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
)

// LoadCSV builds a catalog from a tabular schema export. The first row
// is a header; columns named table, column and type (or data_type) are
// required, matched case-insensitively. Extra columns are ignored.
func LoadCSV(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	tableIdx, columnIdx, typeIdx := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "table", "table_name":
			tableIdx = i
		case "column", "column_name":
			columnIdx = i
		case "type", "data_type":
			typeIdx = i
		}
	}
	if tableIdx < 0 || columnIdx < 0 {
		return nil, fmt.Errorf("header missing table/column fields: %v", header)
	}

	var entries []Entry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if tableIdx >= len(record) || columnIdx >= len(record) {
			continue
		}

		e := Entry{Table: record[tableIdx], Column: record[columnIdx]}
		if typeIdx >= 0 && typeIdx < len(record) {
			e.DataType = strings.TrimSpace(record[typeIdx])
		}
		entries = append(entries, e)
	}

	return NewCatalog(entries), nil
}

// LoadPostgres builds a catalog from a live database's
// information_schema, qualifying tables as schema.table. System schemas
// are excluded.
func LoadPostgres(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*Catalog, error) {
	const query = `
		SELECT table_schema, table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name, ordinal_position`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query information_schema: %v", apperrors.ErrSchemaUnavailable, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var schemaName, tableName, columnName, dataType string
		if err := rows.Scan(&schemaName, &tableName, &columnName, &dataType); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		entries = append(entries, Entry{
			Table:    schemaName + "." + tableName,
			Column:   columnName,
			DataType: dataType,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	catalog := NewCatalog(entries)
	logger.Info("schema catalog loaded",
		zap.Int("tables", catalog.Len()),
		zap.Int("columns", len(entries)))

	return catalog, nil
}

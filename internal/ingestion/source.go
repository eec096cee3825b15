package ingestion

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	// SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

// Column headers produced by the website CMS export.
const (
	csvURLColumn     = "Webflow Live Page URLs"
	csvContentColumn = "Content"
)

// ReadCSV parses a CMS content export into ingestion records. Columns are
// located by header name so their order in the export does not matter. Rows
// shorter than the header are tolerated and surface later as skipped rows.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ingestion: reading csv header: %w", err)
	}

	urlIdx, contentIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case csvURLColumn:
			urlIdx = i
		case csvContentColumn:
			contentIdx = i
		}
	}
	if urlIdx < 0 {
		return nil, fmt.Errorf("ingestion: csv is missing column %q", csvURLColumn)
	}
	if contentIdx < 0 {
		return nil, fmt.Errorf("ingestion: csv is missing column %q", csvContentColumn)
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingestion: reading csv row: %w", err)
		}

		var rec Record
		if urlIdx < len(row) {
			rec.URL = strings.TrimSpace(row[urlIdx])
		}
		if contentIdx < len(row) {
			rec.RawText = row[contentIdx]
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadCSVFile reads a CMS content export from disk.
func ReadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingestion: opening csv %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// identifierPattern restricts SQLite table names to plain identifiers, since
// table names cannot be bound as query parameters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ReadSQLite loads ingestion records from a local SQLite database. The table
// must carry "url" and "content" text columns; content crawlers in the
// ingestion toolchain write their scrape results in that shape.
func ReadSQLite(ctx context.Context, path, table string) ([]Record, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("ingestion: invalid table name %q", table)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ingestion: opening sqlite %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT url, content FROM %q`, table))
	if err != nil {
		return nil, fmt.Errorf("ingestion: querying %s: %w", table, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.URL, &rec.RawText); err != nil {
			return nil, fmt.Errorf("ingestion: scanning row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ingestion: iterating rows: %w", err)
	}
	return records, nil
}

package ingestion

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
)

func Test_ReadCSV(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		`Content,Webflow Live Page URLs`,
		`"Forecasting &amp; planning content",https://impactanalytics.co/forecast`,
		`"Pricing content",https://impactanalytics.co/pricing`,
		`,https://impactanalytics.co/empty`,
	}, "\n")

	records, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("want 3 records, got %d", len(records))
	}
	// Column order in the export does not matter; headers locate the fields.
	if records[0].URL != "https://impactanalytics.co/forecast" {
		t.Errorf("want url from header-mapped column, got %q", records[0].URL)
	}
	if records[0].RawText != "Forecasting &amp; planning content" {
		t.Errorf("raw text must be preserved verbatim, got %q", records[0].RawText)
	}
	if records[2].RawText != "" {
		t.Errorf("empty content cell must stay empty, got %q", records[2].RawText)
	}
}

func Test_ReadCSV_MissingColumns(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
	}{
		{"missing url column", `Content,Other`},
		{"missing content column", `Webflow Live Page URLs,Other`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCSV(strings.NewReader(tc.header + "\na,b\n"))
			if err == nil {
				t.Error("want error for missing column")
			}
		})
	}
}

func Test_ReadCSV_ShortRows(t *testing.T) {
	t.Parallel()

	in := "Webflow Live Page URLs,Content\nhttps://impactanalytics.co/a\n"
	records, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("want 1 record, got %d", len(records))
	}
	if records[0].URL != "https://impactanalytics.co/a" || records[0].RawText != "" {
		t.Errorf("short row must map present fields only, got %+v", records[0])
	}
}

func Test_ReadSQLite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pages.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE pages (url TEXT, content TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO pages (url, content) VALUES (?, ?), (?, ?)`,
		"https://impactanalytics.co/a", "alpha content",
		"https://impactanalytics.co/b", "beta content"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	records, err := ReadSQLite(context.Background(), path, "pages")
	if err != nil {
		t.Fatalf("read sqlite: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("want 2 records, got %d", len(records))
	}
	if records[0].URL != "https://impactanalytics.co/a" || records[0].RawText != "alpha content" {
		t.Errorf("unexpected first record %+v", records[0])
	}
}

func Test_ReadSQLite_RejectsBadTableName(t *testing.T) {
	t.Parallel()

	_, err := ReadSQLite(context.Background(), "ignored.db", "pages; DROP TABLE pages")
	if err == nil {
		t.Error("want error for non-identifier table name")
	}
}

package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shridharia/ia-chatbot/internal/rag"
)

// stubEmbedder returns a fixed-dimension vector per text. A canned error
// fails every call; a bad substring fails any batch containing it and, on the
// single-text path, only the texts that contain it.
type stubEmbedder struct {
	err   error
	bad   string
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.bad != "" && strings.Contains(text, s.bad) {
		return nil, errors.New("invalid input")
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		if s.bad != "" && strings.Contains(text, s.bad) {
			return nil, errors.New("invalid input in batch")
		}
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

// flakyStore rejects upserts for a single page URL and delegates the rest.
type flakyStore struct {
	*rag.MemoryStore
	failURL string
}

func (s *flakyStore) Upsert(ctx context.Context, docs []rag.Document, embeddings [][]float32) error {
	if len(docs) > 0 && docs[0].URL == s.failURL {
		return errors.New("connection reset")
	}
	return s.MemoryStore.Upsert(ctx, docs, embeddings)
}

func Test_Ingest_WritesChunksWithStableIDs(t *testing.T) {
	t.Parallel()

	store := rag.NewMemoryStore()
	p, err := NewPipeline(&stubEmbedder{}, store, &Config{ChunkSize: 20, ChunkOverlap: 5})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	records := []Record{
		{URL: "https://impactanalytics.co/a", RawText: strings.Repeat("forecasting text ", 5)},
	}
	report, err := p.Ingest(context.Background(), records)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if report.PagesIngested != 1 {
		t.Errorf("want 1 page ingested, got %d", report.PagesIngested)
	}
	if report.ChunksWritten < 2 {
		t.Errorf("want multiple chunks for long text, got %d", report.ChunksWritten)
	}
	if store.Len() != report.ChunksWritten {
		t.Errorf("store holds %d docs, report says %d", store.Len(), report.ChunksWritten)
	}

	// Re-ingesting the same content must overwrite, not duplicate.
	before := store.Len()
	if _, err := p.Ingest(context.Background(), records); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if store.Len() != before {
		t.Errorf("re-ingest grew the store from %d to %d docs", before, store.Len())
	}
}

func Test_Ingest_ClearsStoreFirst(t *testing.T) {
	t.Parallel()

	store := rag.NewMemoryStore()
	stale := []rag.Document{{ID: ChunkID("https://old.example/page", 0), Content: "stale"}}
	if err := store.Upsert(context.Background(), stale, [][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	p, err := NewPipeline(&stubEmbedder{}, store, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := p.Ingest(context.Background(), nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("want stale documents removed, store still holds %d", store.Len())
	}
}

func Test_Ingest_SkipsIncompleteRows(t *testing.T) {
	t.Parallel()

	store := rag.NewMemoryStore()
	p, err := NewPipeline(&stubEmbedder{}, store, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	records := []Record{
		{URL: "", RawText: "no url"},
		{URL: "https://impactanalytics.co/empty", RawText: "   "},
		{URL: "https://impactanalytics.co/ok", RawText: "Inventory planning for retailers."},
	}
	report, err := p.Ingest(context.Background(), records)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if report.RowsSkipped != 2 {
		t.Errorf("want 2 skipped rows, got %d", report.RowsSkipped)
	}
	if report.PagesIngested != 1 {
		t.Errorf("want 1 page ingested, got %d", report.PagesIngested)
	}
}

func Test_Ingest_FailedChunkEmbeddingKeepsHealthyChunks(t *testing.T) {
	t.Parallel()

	// Size 10, overlap 2 cuts this 34-byte page into four chunks; only the
	// second chunk [8:18] contains the marker that fails to embed.
	text := "aaaaaaaaaaaaZZZaaaaaaaaaaaaaaaaaaa"
	url := "https://impactanalytics.co/a"

	store := rag.NewMemoryStore()
	p, err := NewPipeline(&stubEmbedder{bad: "ZZZ"}, store, &Config{ChunkSize: 10, ChunkOverlap: 2})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	report, err := p.Ingest(context.Background(), []Record{{URL: url, RawText: text}})
	if err != nil {
		t.Fatalf("ingest must not abort on a failed chunk: %v", err)
	}
	if report.ChunksWritten != 3 {
		t.Errorf("want 3 healthy chunks written, got %d", report.ChunksWritten)
	}
	if report.ChunksFailed != 1 {
		t.Errorf("want 1 failed chunk, got %d", report.ChunksFailed)
	}
	if report.PagesIngested != 1 {
		t.Errorf("want page counted as ingested, got %d", report.PagesIngested)
	}
	if store.Len() != 3 {
		t.Errorf("store holds %d docs, want 3", store.Len())
	}

	// Surviving chunks keep their original positions in the chunk IDs.
	docs, err := store.Search(context.Background(), []float32{1, 0, 0}, -1, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	wantIDs := map[string]bool{
		ChunkID(url, 0): true,
		ChunkID(url, 2): true,
		ChunkID(url, 3): true,
	}
	for _, doc := range docs {
		if !wantIDs[doc.ID] {
			t.Errorf("unexpected chunk ID %s in store", doc.ID)
		}
	}
}

func Test_Ingest_TotalEmbeddingFailureCountsChunksAndContinues(t *testing.T) {
	t.Parallel()

	store := rag.NewMemoryStore()
	p, err := NewPipeline(&stubEmbedder{err: errors.New("quota exhausted")}, store, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	records := []Record{{URL: "https://impactanalytics.co/a", RawText: "some content"}}
	report, err := p.Ingest(context.Background(), records)
	if err != nil {
		t.Fatalf("ingest must not abort on embedding failure: %v", err)
	}
	if report.ChunksFailed == 0 {
		t.Error("want failed chunks counted")
	}
	if report.ChunksWritten != 0 || store.Len() != 0 {
		t.Error("no chunks should be written when every embedding fails")
	}
}

func Test_Ingest_ContinuesPastFailedUpsert(t *testing.T) {
	t.Parallel()

	mem := rag.NewMemoryStore()
	store := &flakyStore{MemoryStore: mem, failURL: "https://impactanalytics.co/a"}
	p, err := NewPipeline(&stubEmbedder{}, store, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	records := []Record{
		{URL: "https://impactanalytics.co/a", RawText: "page the store rejects"},
		{URL: "https://impactanalytics.co/b", RawText: "page the store accepts"},
	}
	report, err := p.Ingest(context.Background(), records)
	if err != nil {
		t.Fatalf("ingest must continue past a failed upsert: %v", err)
	}
	if report.PagesIngested != 1 {
		t.Errorf("want 1 page ingested, got %d", report.PagesIngested)
	}
	if report.ChunksWritten != 1 {
		t.Errorf("want 1 chunk written, got %d", report.ChunksWritten)
	}
	if report.ChunksFailed != 1 {
		t.Errorf("want the rejected page's chunk counted as failed, got %d", report.ChunksFailed)
	}

	docs, err := mem.Search(context.Background(), []float32{1, 0, 0}, -1, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(docs) != 1 || docs[0].URL != "https://impactanalytics.co/b" {
		t.Errorf("want only the accepted page stored, got %+v", docs)
	}
}

func Test_NewPipeline_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(nil, rag.NewMemoryStore(), nil); err == nil {
		t.Error("want error for nil embedder")
	}
	if _, err := NewPipeline(&stubEmbedder{}, nil, nil); err == nil {
		t.Error("want error for nil store")
	}
	if _, err := NewPipeline(&stubEmbedder{}, rag.NewMemoryStore(), &Config{ChunkSize: 10, ChunkOverlap: 10}); err == nil {
		t.Error("want error for overlap >= size")
	}
}

func Test_ChunkID_Deterministic(t *testing.T) {
	t.Parallel()

	a := ChunkID("https://impactanalytics.co/a", 0)
	if a != ChunkID("https://impactanalytics.co/a", 0) {
		t.Error("same url and index must produce the same ID")
	}
	if a == ChunkID("https://impactanalytics.co/a", 1) {
		t.Error("different indexes must produce different IDs")
	}
	if a == ChunkID("https://impactanalytics.co/b", 0) {
		t.Error("different urls must produce different IDs")
	}
}

func Test_Normalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"entities decoded", "Planning &amp; Pricing &#x27;24 &quot;beta&quot; &lt;new&gt;", `Planning & Pricing '24 "beta" <new>`},
		{"nbsp and runs collapse", "a&nbsp;&nbsp;b\n\n  c\t d", "a b c d"},
		{"plain text untouched", "hello world", "hello world"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("%s: Normalize(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func Test_DeriveTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		url  string
		want string
	}{
		{"pipe-delimited header", "Demand Forecasting | Impact Analytics. The rest of the page.", "https://x", "Demand Forecasting"},
		{"no delimiter uses leading text", "Short page", "https://x", "Short page"},
		{"empty text falls back to url", "", "https://impactanalytics.co/p", "https://impactanalytics.co/p"},
		{"long text is capped", strings.Repeat("a", 500), "https://x", strings.Repeat("a", 200)},
		{"cap lands on a rune boundary", strings.Repeat("日", 100), "https://x", strings.Repeat("日", 66)},
	}
	for _, tc := range cases {
		got := DeriveTitle(tc.text, tc.url)
		if got != tc.want {
			t.Errorf("%s: DeriveTitle = %q, want %q", tc.name, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("%s: DeriveTitle produced invalid UTF-8", tc.name)
		}
	}
}

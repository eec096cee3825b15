package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/shridharia/ia-chatbot/internal/generator"
	"github.com/shridharia/ia-chatbot/internal/rag"
)

// fakeRetriever returns a fixed document list and records whether it ran.
type fakeRetriever struct {
	docs   []rag.Document
	called bool
}

func (f *fakeRetriever) Retrieve(context.Context, string) []rag.Document {
	f.called = true
	return f.docs
}

// fakeGenerator records the system message and history it received.
type fakeGenerator struct {
	answer     string
	err        error
	gotSystem  string
	gotHistory []*schema.Message
	called     bool
}

func (f *fakeGenerator) Generate(_ context.Context, systemMessage string, history []*schema.Message) (string, error) {
	f.called = true
	f.gotSystem = systemMessage
	f.gotHistory = history
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestEngine(t *testing.T, r Retriever, g Generator) *Engine {
	t.Helper()
	e, err := NewEngine(r, g, "")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func Test_Answer_WithRetrievedContext(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{docs: []rag.Document{
		{ID: "a", Content: "We build demand forecasting software.", URL: "https://impactanalytics.co/forecast", Title: "Forecasting", Score: 0.9},
		{ID: "b", Content: "Pricing optimization for retailers.", URL: "https://impactanalytics.co/pricing", Title: "Pricing", Score: 0.7},
	}}
	gen := &fakeGenerator{answer: "We offer forecasting and pricing products."}
	e := newTestEngine(t, retriever, gen)

	got, err := e.Answer(context.Background(), []Turn{{Role: RoleUser, Content: "what do you sell?"}})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if got.Text != gen.answer {
		t.Errorf("want generated text, got %q", got.Text)
	}

	// Both documents feed the system prompt, content and source URL alike.
	for _, want := range []string{
		"We build demand forecasting software.",
		"Pricing optimization for retailers.",
		"https://impactanalytics.co/forecast",
		"https://impactanalytics.co/pricing",
	} {
		if !strings.Contains(gen.gotSystem, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}

	// Sources preserve retrieval rank.
	if len(got.Sources) != 2 {
		t.Fatalf("want 2 sources, got %d", len(got.Sources))
	}
	if got.Sources[0].URL != "https://impactanalytics.co/forecast" {
		t.Errorf("want highest-ranked source first, got %q", got.Sources[0].URL)
	}
	if got.Sources[1].Title != "Pricing" {
		t.Errorf("want second source title, got %q", got.Sources[1].Title)
	}
}

func Test_Answer_EmptyStoreFallsBackGracefully(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{answer: "In general, Impact Analytics builds retail AI."}
	e := newTestEngine(t, &fakeRetriever{}, gen)

	got, err := e.Answer(context.Background(), []Turn{{Role: RoleUser, Content: "tell me about the company"}})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(gen.gotSystem, "No specific context found") {
		t.Errorf("system prompt must carry the no-context fallback, got %q", gen.gotSystem)
	}
	if len(got.Sources) != 0 {
		t.Errorf("want no sources without retrieved context, got %d", len(got.Sources))
	}
}

func Test_Answer_HistoryPassedVerbatim(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{answer: "ok"}
	e := newTestEngine(t, &fakeRetriever{}, gen)

	turns := []Turn{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello, how can I help?"},
		{Role: RoleUser, Content: "what is SKU rationalization?"},
	}
	if _, err := e.Answer(context.Background(), turns); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if len(gen.gotHistory) != len(turns) {
		t.Fatalf("want %d history messages, got %d", len(turns), len(gen.gotHistory))
	}
	wantRoles := []schema.RoleType{schema.User, schema.Assistant, schema.User}
	for i, m := range gen.gotHistory {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d: want role %q, got %q", i, wantRoles[i], m.Role)
		}
		if m.Content != turns[i].Content {
			t.Errorf("message %d: want content %q, got %q", i, turns[i].Content, m.Content)
		}
	}
}

func Test_Answer_GenerationFailurePropagates(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{err: generator.ErrGeneration}
	e := newTestEngine(t, &fakeRetriever{}, gen)

	_, err := e.Answer(context.Background(), []Turn{{Role: RoleUser, Content: "q"}})
	if !errors.Is(err, generator.ErrGeneration) {
		t.Errorf("want generation error to propagate, got %v", err)
	}
}

// Test_Answer_MalformedRejectedBeforeExternalCalls verifies that invalid
// conversations are rejected without touching the retriever or the model.
func Test_Answer_MalformedRejectedBeforeExternalCalls(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		turns []Turn
	}{
		{"empty conversation", nil},
		{"assistant-terminated", []Turn{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
		}},
		{"empty final query", []Turn{{Role: RoleUser, Content: ""}}},
		{"unknown role", []Turn{{Role: "tool", Content: "x"}, {Role: RoleUser, Content: "q"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			retriever := &fakeRetriever{}
			gen := &fakeGenerator{}
			e := newTestEngine(t, retriever, gen)

			_, err := e.Answer(context.Background(), tc.turns)
			if !errors.Is(err, ErrMalformedRequest) {
				t.Fatalf("want ErrMalformedRequest, got %v", err)
			}
			if retriever.called {
				t.Error("retriever must not run for a malformed request")
			}
			if gen.called {
				t.Error("generator must not run for a malformed request")
			}
		})
	}
}

func Test_NewEngine_NilDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine(nil, &fakeGenerator{}, ""); err == nil {
		t.Error("want error for nil retriever")
	}
	if _, err := NewEngine(&fakeRetriever{}, nil, ""); err == nil {
		t.Error("want error for nil generator")
	}
}

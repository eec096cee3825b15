package generator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeChatModel implements model.BaseChatModel for tests. It records the
// messages it received and returns a canned response.
type fakeChatModel struct {
	response *schema.Message
	err      error
	got      []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported in fake")
}

// newFakeGenerator wires a Generator to the given fake model.
func newFakeGenerator(f *fakeChatModel) *Generator {
	return New(func(context.Context) (model.BaseChatModel, error) { return f, nil })
}

func Test_Generate_PrependsSystemMessage(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{response: schema.AssistantMessage("answer", nil)}
	g := newFakeGenerator(fake)

	history := []*schema.Message{
		schema.UserMessage("hi"),
		schema.AssistantMessage("hello", nil),
		schema.UserMessage("what do you sell?"),
	}
	got, err := g.Generate(context.Background(), "SYSTEM", history)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "answer" {
		t.Errorf("want completion text, got %q", got)
	}
	if len(fake.got) != 4 {
		t.Fatalf("want 4 messages sent, got %d", len(fake.got))
	}
	if fake.got[0].Role != schema.System || fake.got[0].Content != "SYSTEM" {
		t.Errorf("first message must be the system message, got %+v", fake.got[0])
	}
	// History passes through verbatim, in order.
	for i, m := range history {
		if fake.got[i+1] != m {
			t.Errorf("history message %d not passed through verbatim", i)
		}
	}
}

func Test_Generate_EmptyCompletionYieldsFallback(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		resp *schema.Message
	}{
		{"nil response", nil},
		{"empty content", schema.AssistantMessage("", nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := newFakeGenerator(&fakeChatModel{response: tc.resp})
			got, err := g.Generate(context.Background(), "SYS", nil)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if got != FallbackAnswer {
				t.Errorf("want fallback answer, got %q", got)
			}
		})
	}
}

func Test_Generate_RemoteFailureWrapsSentinel(t *testing.T) {
	t.Parallel()

	g := newFakeGenerator(&fakeChatModel{err: fmt.Errorf("429 too many requests")})
	_, err := g.Generate(context.Background(), "SYS", nil)
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("want ErrGeneration, got %v", err)
	}
}

// Test_Generator_LazyInit verifies the deferred-initialization contract: the
// factory must not run at construction time, must run exactly once, and a
// factory error must surface as ErrGeneration on every call.
func Test_Generator_LazyInit(t *testing.T) {
	t.Parallel()

	calls := 0
	g := New(func(context.Context) (model.BaseChatModel, error) {
		calls++
		return &fakeChatModel{response: schema.AssistantMessage("ok", nil)}, nil
	})
	if calls != 0 {
		t.Fatal("factory must not be invoked at construction time")
	}

	for range 3 {
		if _, err := g.Generate(context.Background(), "SYS", nil); err != nil {
			t.Fatalf("generate: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("factory must be memoized, got %d calls", calls)
	}
}

func Test_Generator_InitFailure(t *testing.T) {
	t.Parallel()

	g := New(func(context.Context) (model.BaseChatModel, error) {
		return nil, errors.New("no credentials")
	})
	_, err := g.Generate(context.Background(), "SYS", nil)
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("want ErrGeneration on init failure, got %v", err)
	}
}

func Test_ConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openai without key", Config{Backend: BackendOpenAI}, true},
		{"openai with key", Config{Backend: BackendOpenAI, APIKey: "k"}, false},
		{"ollama needs nothing", Config{Backend: BackendOllama}, false},
		{"azure missing deployment", Config{Backend: BackendAzure, APIKey: "k", BaseURL: "https://r"}, true},
		{"gemini without key", Config{Backend: BackendGemini}, true},
		{"ark without model", Config{Backend: BackendArk, APIKey: "k"}, true},
		{"unknown backend", Config{Backend: "bogus"}, true},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

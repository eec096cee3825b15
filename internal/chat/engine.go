// Package chat implements the retrieval-augmented answer pipeline: validate
// the conversation, retrieve relevant website passages for the latest user
// query, assemble the system prompt, and generate the answer with source
// attribution.
//
// The pipeline is stateless by design: every request carries the full
// conversation history and the process retains nothing between requests, so
// independent requests can be served concurrently with no locking. Within a
// request the steps are strictly sequential: generation never starts before
// retrieval completes, because the retrieved text feeds the prompt.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/shridharia/ia-chatbot/internal/prompt"
	"github.com/shridharia/ia-chatbot/internal/rag"
)

// ErrMalformedRequest indicates the caller supplied an empty or
// wrong-role-terminated turn sequence. Rejected before any external call.
var ErrMalformedRequest = errors.New("chat: malformed request")

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser is a turn written by the website visitor.
	RoleUser Role = "user"
	// RoleAssistant is a turn previously produced by the model.
	RoleAssistant Role = "assistant"
	// RoleSystem is a caller-supplied system turn.
	RoleSystem Role = "system"
)

// Turn is a single entry in the conversation supplied by the caller.
type Turn struct {
	// Role is the author of the turn.
	Role Role `json:"role"`
	// Content is the turn text.
	Content string `json:"content"`
}

// Answer is the pipeline result: the generated text plus the attribution
// list, deduplicated by URL in retrieval rank order.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"content"`
	// Sources lists the cited pages, most relevant first.
	Sources []prompt.Source `json:"sources"`
}

// Retriever fetches context documents for a query. Implementations are
// best-effort: an empty result means "answer without retrieved context".
type Retriever interface {
	Retrieve(ctx context.Context, query string) []rag.Document
}

// Generator produces the answer text from a system message and history.
type Generator interface {
	Generate(ctx context.Context, systemMessage string, history []*schema.Message) (string, error)
}

// Engine wires the retriever, prompt assembly, and generator into the
// per-request answer pipeline.
type Engine struct {
	// retriever supplies ranked context documents. Never nil.
	retriever Retriever

	// generator produces the final answer. Never nil.
	generator Generator

	// systemInstruction is the base persona prompt.
	systemInstruction string
}

// NewEngine constructs an Engine. systemInstruction may be empty, in which
// case the default assistant persona is used.
func NewEngine(retriever Retriever, generator Generator, systemInstruction string) (*Engine, error) {
	if retriever == nil {
		return nil, fmt.Errorf("chat: retriever must not be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("chat: generator must not be nil")
	}
	if systemInstruction == "" {
		systemInstruction = prompt.SystemInstruction
	}
	return &Engine{
		retriever:         retriever,
		generator:         generator,
		systemInstruction: systemInstruction,
	}, nil
}

// Answer runs the full pipeline for the given conversation. The last turn
// must be a non-empty user turn; it is the retrieval query. Retrieval
// failures degrade to an uncontexted answer; generation failures propagate
// so no answer is fabricated without the model.
func (e *Engine) Answer(ctx context.Context, turns []Turn) (*Answer, error) {
	if err := ValidateTurns(turns); err != nil {
		return nil, err
	}

	query := turns[len(turns)-1].Content
	docs := e.retriever.Retrieve(ctx, query)

	systemMessage := prompt.Assemble(e.systemInstruction, docs)

	text, err := e.generator.Generate(ctx, systemMessage, toSchemaMessages(turns))
	if err != nil {
		return nil, err
	}

	return &Answer{
		Text:    text,
		Sources: prompt.Sources(docs),
	}, nil
}

// ValidateTurns rejects conversations the pipeline must not process: an
// empty sequence, a sequence not terminated by a user turn, an empty final
// query, or a turn with an unknown role. Runs before any external call.
func ValidateTurns(turns []Turn) error {
	if len(turns) == 0 {
		return fmt.Errorf("%w: empty conversation", ErrMalformedRequest)
	}
	for i, turn := range turns {
		switch turn.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return fmt.Errorf("%w: turn %d has unknown role %q", ErrMalformedRequest, i, turn.Role)
		}
	}
	last := turns[len(turns)-1]
	if last.Role != RoleUser {
		return fmt.Errorf("%w: last turn must have role %q, got %q", ErrMalformedRequest, RoleUser, last.Role)
	}
	if last.Content == "" {
		return fmt.Errorf("%w: last user turn is empty", ErrMalformedRequest)
	}
	return nil
}

// toSchemaMessages converts caller turns to the model message type, verbatim
// and in order.
func toSchemaMessages(turns []Turn) []*schema.Message {
	out := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(t.Content, nil))
		case RoleSystem:
			out = append(out, schema.SystemMessage(t.Content))
		default:
			out = append(out, schema.UserMessage(t.Content))
		}
	}
	return out
}

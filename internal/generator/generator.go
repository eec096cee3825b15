package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrGeneration indicates the chat-completion call failed (network, auth,
// rate limit). Unlike retrieval failures this is fatal to the current
// request: it propagates to the request boundary, which maps it to a
// user-visible error instead of fabricating an answer.
var ErrGeneration = errors.New("generator: chat completion error")

// FallbackAnswer is returned when the service responds successfully but with
// no usable completion text.
const FallbackAnswer = "I couldn't generate a response."

// Generator sends assembled message lists to the chat-completion service.
// The underlying client is constructed lazily on first use and memoized for
// the process lifetime, so building and testing without credentials never
// fails at startup; only an actual generation attempt reads them.
type Generator struct {
	// factory builds the chat model on first use.
	factory func(ctx context.Context) (model.BaseChatModel, error)

	// once guards the single factory invocation.
	once sync.Once

	// chatModel and initErr hold the memoized factory result.
	chatModel model.BaseChatModel
	initErr   error
}

// New constructs a Generator whose chat model is built by factory on the
// first Generate call.
func New(factory func(ctx context.Context) (model.BaseChatModel, error)) *Generator {
	return &Generator{factory: factory}
}

// NewFromEnv constructs a Generator that resolves its backend from
// environment variables at first use (see ConfigFromEnv).
func NewFromEnv() *Generator {
	return New(func(ctx context.Context) (model.BaseChatModel, error) {
		return newChatModel(ctx, ConfigFromEnv())
	})
}

// NewFromConfig constructs a Generator for an explicit Config. The config is
// captured now but only validated and dialled on first use.
func NewFromConfig(cfg *Config) *Generator {
	return New(func(ctx context.Context) (model.BaseChatModel, error) {
		return newChatModel(ctx, cfg)
	})
}

// Generate sends systemMessage followed by the conversation history to the
// chat-completion service and returns the completion text. History roles are
// passed through verbatim; no turns are added, dropped, or persisted.
// Remote failures wrap ErrGeneration. An empty completion yields
// FallbackAnswer rather than an error.
func (g *Generator) Generate(ctx context.Context, systemMessage string, history []*schema.Message) (string, error) {
	g.once.Do(func() {
		g.chatModel, g.initErr = g.factory(ctx)
	})
	if g.initErr != nil {
		return "", fmt.Errorf("%w: init: %v", ErrGeneration, g.initErr)
	}

	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, schema.SystemMessage(systemMessage))
	messages = append(messages, history...)

	resp, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if resp == nil || resp.Content == "" {
		return FallbackAnswer, nil
	}
	return resp.Content, nil
}

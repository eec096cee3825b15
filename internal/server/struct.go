package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shridharia/ia-chatbot/internal/chat"
	"github.com/shridharia/ia-chatbot/internal/prompt"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// AllowedOrigin is the value sent in Access-Control-Allow-Origin so the
	// widget can call the API from the website. Defaults to "*".
	AllowedOrigin string
}

// Answerer runs the question-answering pipeline for a conversation.
// *chat.Engine satisfies it; tests inject a fake.
type Answerer interface {
	Answer(ctx context.Context, turns []chat.Turn) (*chat.Answer, error)
}

// Server is the HTTP server that exposes the chat widget API.
type Server struct {
	// answerer handles /api/chat conversations.
	answerer Answerer
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat: the full conversation so
// far, oldest turn first. The server keeps no conversation state of its own.
type chatRequest struct {
	// Messages is the conversation history ending with the new user turn.
	Messages []chat.Turn `json:"messages"`
}

// chatResponse is the JSON response for POST /api/chat.
type chatResponse struct {
	// Content is the generated answer text.
	Content string `json:"content"`
	// Sources lists the pages the answer drew on, most relevant first.
	Sources []prompt.Source `json:"sources"`
}

// errorResponse is the JSON error body. It never carries answer content.
type errorResponse struct {
	// Error is the human-readable failure description.
	Error string `json:"error"`
}

// Package prompt builds the system message for the chat model from the base
// assistant instruction and the retrieved website passages, and derives the
// user-facing source attribution list.
package prompt

import (
	"fmt"
	"strings"

	"github.com/shridharia/ia-chatbot/internal/rag"
)

// SystemInstruction is the base persona prompt injected into every
// conversation. Retrieval context is appended to it per request.
const SystemInstruction = `You are the IA Digital Agent for Impact Analytics (impactanalytics.ai). You help visitors learn about Impact Analytics's solutions, products, services, and company.

Guidelines:
- Answer questions using the provided context from the Impact Analytics website when available.
- When the context includes relevant information, cite it and include the source URL.
- Format your responses in clear, readable markdown (bold for emphasis, bullet points for lists).
- If you don't have enough context, respond based on general knowledge about Impact Analytics as an AI-native retail/CPG analytics company.
- Keep responses concise but informative.
- When citing sources, format them as: [Source: URL] or include a "Sources" section with clickable links.`

// fallbackBlock is appended when retrieval produced no documents. It steers
// the model toward general domain knowledge instead of fabricated citations.
const fallbackBlock = "\n\nNo specific context found. Answer based on general knowledge about Impact Analytics (Agentic AI for retail, merchandising, pricing, inventory, etc.)."

// Assemble merges the base system instruction with the retrieved documents
// into a single system message. Document order is preserved as given: the
// caller supplies them most-similar first, which is the ranking signal the
// model receives. With no documents the general-knowledge fallback is used.
func Assemble(systemInstruction string, docs []rag.Document) string {
	if len(docs) == 0 {
		return systemInstruction + fallbackBlock
	}

	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\nRelevant context from the Impact Analytics website:\n")
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "- %s\n  Source: %s", d.Content, d.URL)
	}
	b.WriteString("\n\nWhen using this context, include the source URLs in your response where relevant.")
	return b.String()
}

// Source is one entry in the user-facing attribution list.
type Source struct {
	// URL is the source page address.
	URL string `json:"url"`
	// Title is the page title, falling back to the URL when absent.
	Title string `json:"title"`
}

// Sources derives the attribution list from the retrieved documents,
// deduplicated by URL with first-occurrence order preserved. Multiple chunks
// of the same page therefore yield a single entry at the rank of the
// best-scoring chunk.
func Sources(docs []rag.Document) []Source {
	seen := make(map[string]bool, len(docs))
	out := make([]Source, 0, len(docs))
	for _, d := range docs {
		if d.URL == "" || seen[d.URL] {
			continue
		}
		seen[d.URL] = true
		title := d.Title
		if title == "" {
			title = d.URL
		}
		out = append(out, Source{URL: d.URL, Title: title})
	}
	return out
}

package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a VectorStore that keeps everything in process memory and
// answers similarity queries with a brute-force exact cosine scan. It backs
// local development (VECTOR_STORE=memory) and the package tests; the query
// contract (ordering, threshold, limit, stable ties) is identical to the
// Qdrant implementation.
type MemoryStore struct {
	mu sync.RWMutex

	// index maps document ID to its position in docs/vectors.
	index map[string]int

	// docs and vectors are parallel slices in insertion order.
	docs    []Document
	vectors [][]float32
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

// Upsert stores or replaces documents by ID. Replacing keeps the original
// insertion position so tie-breaking stays stable across re-ingestion.
func (s *MemoryStore) Upsert(_ context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("memory store: docs and embeddings length mismatch: %d vs %d", len(docs), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, doc := range docs {
		if pos, ok := s.index[doc.ID]; ok {
			s.docs[pos] = doc
			s.vectors[pos] = embeddings[i]
			continue
		}
		s.index[doc.ID] = len(s.docs)
		s.docs = append(s.docs, doc)
		s.vectors = append(s.vectors, embeddings[i])
	}

	return nil
}

// Search scans every stored vector, keeps matches with cosine similarity at
// or above threshold, sorts by descending score (insertion order on ties),
// and truncates to limit.
func (s *MemoryStore) Search(_ context.Context, queryEmbedding []float32, threshold float32, limit int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   Document
		score float32
	}

	matches := make([]scored, 0, len(s.docs))
	for i, vec := range s.vectors {
		score := cosineSimilarity(queryEmbedding, vec)
		if score < threshold {
			continue
		}
		doc := s.docs[i]
		doc.Score = score
		matches = append(matches, scored{doc: doc, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Document, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.doc)
	}
	return out, nil
}

// Clear removes every stored document.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = make(map[string]int)
	s.docs = nil
	s.vectors = nil
	return nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Close is a no-op; the store holds no external resources.
func (s *MemoryStore) Close() error { return nil }

// cosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Mismatched lengths or zero vectors score 0 (no similarity).
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

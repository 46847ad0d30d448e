package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
)

type entry struct {
	doc       catalog.Document
	embedding []float32
}

// Store is an in-process vector store ranking by cosine similarity. Used for tests and local runs.
type Store struct {
	mu        sync.RWMutex
	dimension int
	data      map[uuid.UUID]entry
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{data: make(map[uuid.UUID]entry)}
}

// EnsureCollection pins the vector dimension on first use.
func (s *Store) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("collection dimension is %d, got %d", s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

// Upsert stores or replaces the document keyed by its ID.
func (s *Store) Upsert(_ context.Context, doc catalog.Document, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && len(embedding) != s.dimension {
		return fmt.Errorf("embedding dimension %d does not match collection dimension %d", len(embedding), s.dimension)
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	s.data[doc.ID] = entry{doc: doc, embedding: vec}
	return nil
}

// Search returns the k closest documents.
func (s *Store) Search(_ context.Context, embedding []float32, k int) ([]catalog.ScoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]catalog.ScoredDocument, 0, len(s.data))
	for _, e := range s.data {
		results = append(results, catalog.ScoredDocument{
			Document: e.doc,
			Score:    cosineSimilarity(embedding, e.embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].Document.ID.String() < results[j].Document.ID.String()
		}
		return results[i].Score > results[j].Score
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len reports how many documents are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ catalog.VectorStore = (*Store)(nil)

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
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
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

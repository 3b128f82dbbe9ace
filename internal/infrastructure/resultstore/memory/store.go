// Package memory keeps processing results in process memory.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
)

var _ ports.ResultStore = (*Store)(nil)

// Store hands out copies so callers never share state with the cache.
type Store struct {
	mu      sync.RWMutex
	results map[string]*domain.DocumentProcessingResult
}

func New() *Store {
	return &Store{results: make(map[string]*domain.DocumentProcessingResult)}
}

func (s *Store) Save(_ context.Context, result *domain.DocumentProcessingResult) error {
	if result == nil || result.DocumentID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "memory.save", errors.New("document id is required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.DocumentID] = result.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, documentID string) (*domain.DocumentProcessingResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[documentID]
	if !ok {
		return nil, domain.ErrResultNotFound
	}
	return result.Clone(), nil
}

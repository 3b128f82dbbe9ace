// Package redis shares processing results between the API and workers.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
)

const (
	keyPrefix  = "docintel:result:"
	DefaultTTL = 24 * time.Hour
)

var _ ports.ResultStore = (*Store)(nil)

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New stores results for ttl; zero means DefaultTTL.
func New(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Save(ctx context.Context, result *domain.DocumentProcessingResult) error {
	if result == nil || result.DocumentID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "redis.save_result", errors.New("document id is required"))
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+result.DocumentID, data, s.ttl).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "redis.save_result", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, documentID string) (*domain.DocumentProcessingResult, error) {
	data, err := s.client.Get(ctx, keyPrefix+documentID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrResultNotFound
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "redis.get_result", err)
	}
	var result domain.DocumentProcessingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result %s: %w", documentID, err)
	}
	return &result, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

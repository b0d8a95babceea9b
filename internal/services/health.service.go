package services

import (
	"context"

	"github.com/nimasrn/cash-ledger/pkg/redis"
	"github.com/pkg/errors"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	db    Pinger
	redis redis.RedisAdapter
}

func NewHealthService(db Pinger, adapter redis.RedisAdapter) *HealthService {
	return &HealthService{db: db, redis: adapter}
}

// Check reports the first dependency that does not answer.
func (s *HealthService) Check(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			return errors.Wrap(err, "postgres")
		}
	}
	if s.redis != nil {
		if err := s.redis.Client().Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "redis")
		}
	}
	return nil
}

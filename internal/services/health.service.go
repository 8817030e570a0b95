package services

import (
	"context"
	"errors"

	"github.com/osool/allowance-gateway/pkg/pg"
	"github.com/osool/allowance-gateway/pkg/redis"
)

var ErrStoreUnavailable = errors.New("backing store unavailable")

// HealthService answers liveness by pinging both backing stores.
type HealthService struct {
	db    *pg.DB
	redis redis.RedisAdapter
}

func NewHealthService(db *pg.DB, redisAdapter redis.RedisAdapter) *HealthService {
	return &HealthService{
		db:    db,
		redis: redisAdapter,
	}
}

func (s *HealthService) Get() error {
	if s.db != nil {
		sqlDB, err := s.db.Read(context.Background()).DB()
		if err != nil {
			return ErrStoreUnavailable
		}
		if err := sqlDB.Ping(); err != nil {
			return ErrStoreUnavailable
		}
	}
	if s.redis != nil {
		if _, err := s.redis.Exist("health:probe"); err != nil {
			return ErrStoreUnavailable
		}
	}
	return nil
}

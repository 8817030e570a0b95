package services

import (
	"encoding/json"
	"time"

	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/pkg/logger"
	"github.com/osool/allowance-gateway/pkg/redis"
	"github.com/shopspring/decimal"
)

// BalanceCacheService keeps a per-holder, per-day remaining balance in
// the cache store so that glance reads never touch the database. The
// ledger is the source of truth; a missing or stale entry is always
// recoverable by recomputing from it.
type BalanceCacheService struct {
	redis redis.RedisAdapter
	ttl   time.Duration
}

func NewBalanceCacheService(redisAdapter redis.RedisAdapter, ttl time.Duration) *BalanceCacheService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &BalanceCacheService{
		redis: redisAdapter,
		ttl:   ttl,
	}
}

func (s *BalanceCacheService) Put(holderID string, date string, remaining decimal.Decimal) {
	cached := model.CachedBalance{
		Remaining: remaining,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return
	}
	if err := s.redis.Set(balanceKey(holderID, date), data, s.ttl); err != nil {
		logger.Warn("balance cache put failed", "holder_id", holderID, "error", err)
	}
}

func (s *BalanceCacheService) Get(holderID string, date string) (*model.CachedBalance, bool) {
	data, err := s.redis.Get(balanceKey(holderID, date))
	if err != nil {
		if err != redis.NilError {
			logger.Warn("balance cache get failed", "holder_id", holderID, "error", err)
		}
		return nil, false
	}
	var cached model.CachedBalance
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	return &cached, true
}

func (s *BalanceCacheService) Invalidate(holderID string, date string) {
	if err := s.redis.Del(balanceKey(holderID, date)); err != nil {
		logger.Warn("balance cache invalidate failed", "holder_id", holderID, "error", err)
	}
}

func balanceKey(holderID, date string) string {
	return "balance:" + holderID + ":" + date
}

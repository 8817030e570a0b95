package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/test/helpers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceCacheService_PutGet(t *testing.T) {
	_, adapter := helpers.SetupTestRedis(t)
	cache := NewBalanceCacheService(adapter, 24*time.Hour)

	holderID := uuid.New().String()
	cache.Put(holderID, "2026-08-29", decimal.RequireFromString("87.50"))

	cached, ok := cache.Get(holderID, "2026-08-29")
	require.True(t, ok)
	assert.True(t, cached.Remaining.Equal(decimal.RequireFromString("87.50")))
	assert.False(t, cached.UpdatedAt.IsZero())
}

func TestBalanceCacheService_MissOnOtherDay(t *testing.T) {
	_, adapter := helpers.SetupTestRedis(t)
	cache := NewBalanceCacheService(adapter, 24*time.Hour)

	holderID := uuid.New().String()
	cache.Put(holderID, "2026-08-29", decimal.RequireFromString("50.00"))

	_, ok := cache.Get(holderID, "2026-08-30")
	assert.False(t, ok)
}

func TestBalanceCacheService_Invalidate(t *testing.T) {
	_, adapter := helpers.SetupTestRedis(t)
	cache := NewBalanceCacheService(adapter, 24*time.Hour)

	holderID := uuid.New().String()
	cache.Put(holderID, "2026-08-29", decimal.RequireFromString("50.00"))
	cache.Invalidate(holderID, "2026-08-29")

	_, ok := cache.Get(holderID, "2026-08-29")
	assert.False(t, ok)
}

func TestBalanceCacheService_Expiry(t *testing.T) {
	mr, adapter := helpers.SetupTestRedis(t)
	cache := NewBalanceCacheService(adapter, time.Minute)

	holderID := uuid.New().String()
	cache.Put(holderID, "2026-08-29", decimal.RequireFromString("50.00"))

	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(holderID, "2026-08-29")
	assert.False(t, ok)
}

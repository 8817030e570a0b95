package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/pkg/prom"
	"github.com/osool/allowance-gateway/pkg/redis"
)

var (
	ErrTokenNotFound   = errors.New("invalid or expired token")
	ErrInvalidContext  = errors.New("invalid token context")
	ErrTokenStoreWrite = errors.New("token store unavailable")
)

const tokenEntropyBytes = 32

type TokenConfig struct {
	AttendanceTTL time.Duration
	SpendTTL      time.Duration
}

func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		AttendanceTTL: 24 * time.Hour,
		SpendTTL:      24 * time.Hour,
	}
}

// TokenService issues and redeems single-use opaque tokens. The token
// string is pure randomness; the holder association lives only in the
// cache store, so nothing about the holder can be read out of the
// token itself.
type TokenService struct {
	redis  redis.RedisAdapter
	config TokenConfig
}

func NewTokenService(redisAdapter redis.RedisAdapter, config TokenConfig) *TokenService {
	if config.AttendanceTTL <= 0 {
		config.AttendanceTTL = 24 * time.Hour
	}
	if config.SpendTTL <= 0 {
		config.SpendTTL = 24 * time.Hour
	}
	return &TokenService{
		redis:  redisAdapter,
		config: config,
	}
}

// Issue stores the payload under a fresh token and returns the token
// with its expiry. Tokens issued for the same holder are independent;
// uniqueness comes from 32 bytes of crypto randomness, not a lookup.
func (s *TokenService) Issue(ctx context.Context, payload model.TokenPayload) (*model.IssuedToken, error) {
	if !payload.Context.Valid() {
		return nil, ErrInvalidContext
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ttl := s.ttlFor(payload.Context)
	payload.IssuedAt = now
	payload.ExpiresAt = now.Add(ttl)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	if err := s.redis.Set(tokenKey(payload.Context, token), data, ttl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenStoreWrite, err)
	}

	prom.IncCounterVec(prom.SystemToken, prom.MetricTokensIssued, string(payload.Context))

	return &model.IssuedToken{
		Token:     token,
		ExpiresAt: payload.ExpiresAt,
	}, nil
}

// Redeem consumes the token atomically: the underlying GETDEL guarantees
// that of any number of concurrent redeems exactly one receives the
// payload and the rest see ErrTokenNotFound. Expired, never-issued and
// already-used tokens are indistinguishable to the caller.
func (s *TokenService) Redeem(ctx context.Context, tokenCtx model.TokenContext, token string) (*model.TokenPayload, error) {
	if !tokenCtx.Valid() {
		return nil, ErrInvalidContext
	}
	if token == "" {
		return nil, ErrTokenNotFound
	}

	data, err := s.redis.GetDel(tokenKey(tokenCtx, token))
	if err != nil {
		if err == redis.NilError {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	var payload model.TokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, ErrTokenNotFound
	}

	// The cache TTL already evicts expired keys; the embedded expiry is
	// a second gate in case of clock drift between issuer and store.
	if time.Now().UTC().After(payload.ExpiresAt) {
		return nil, ErrTokenNotFound
	}

	prom.IncCounterVec(prom.SystemToken, prom.MetricTokensRedeemed, string(tokenCtx))

	return &payload, nil
}

func (s *TokenService) ttlFor(c model.TokenContext) time.Duration {
	if c == model.ContextSpend {
		return s.config.SpendTTL
	}
	return s.config.AttendanceTTL
}

func tokenKey(c model.TokenContext, token string) string {
	return string(c) + ":" + token
}

func generateToken() (string, error) {
	b := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

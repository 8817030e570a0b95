package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/internal/repository"
	"github.com/osool/allowance-gateway/pkg/prom"
	"github.com/shopspring/decimal"
)

// GlanceResult is what a point-of-sale terminal shows after a spend
// token is presented: who the holder is and what they have left today.
type GlanceResult struct {
	HolderID   uuid.UUID       `json:"holder_id"`
	HolderName string          `json:"holder_name"`
	ProgramID  uuid.UUID       `json:"program_id"`
	Date       string          `json:"date"`
	Remaining  decimal.Decimal `json:"remaining"`
	FromCache  bool            `json:"-"`
}

type BalanceProvider interface {
	GetBalance(ctx context.Context, holderID uuid.UUID, date string) (*model.Balance, error)
}

// POSService covers the point-of-sale side of the token flows: issuing
// spend tokens and turning a presented token into a balance glance.
type POSService struct {
	tokens     TokenBroker
	ledger     BalanceProvider
	cache      BalanceCache
	holderRepo HolderRepository
}

func NewPOSService(tokens TokenBroker, ledger BalanceProvider, cache BalanceCache, holderRepo HolderRepository) *POSService {
	return &POSService{
		tokens:     tokens,
		ledger:     ledger,
		cache:      cache,
		holderRepo: holderRepo,
	}
}

// IssueSpendToken issues a spend-context token for an active holder and
// primes the balance cache so the glance that follows is a cache hit.
func (s *POSService) IssueSpendToken(ctx context.Context, holderID uuid.UUID) (*model.IssuedToken, error) {
	holder, err := s.holderRepo.GetByID(ctx, holderID)
	if err != nil {
		return nil, mapHolderErr(err)
	}
	if !holder.IsActive {
		return nil, ErrHolderInactive
	}

	issued, err := s.tokens.Issue(ctx, model.TokenPayload{
		HolderID: holderID,
		Context:  model.ContextSpend,
	})
	if err != nil {
		return nil, err
	}

	// Best effort; a holder without today's allowance row still gets a
	// token, the glance will just miss the cache.
	date := model.Today()
	if balance, err := s.ledger.GetBalance(ctx, holderID, date); err == nil {
		s.cache.Put(holderID.String(), date, balance.Remaining)
	}

	return issued, nil
}

// Glance redeems a spend token and returns the holder's remaining
// balance for today. Reads the cache first; a miss falls through to the
// authoritative ledger and repopulates the cache.
func (s *POSService) Glance(ctx context.Context, token string) (*GlanceResult, error) {
	payload, err := s.tokens.Redeem(ctx, model.ContextSpend, token)
	if err != nil {
		return nil, err
	}

	holder, err := s.holderRepo.GetByID(ctx, payload.HolderID)
	if err != nil {
		if errors.Is(err, repository.ErrHolderNotFound) {
			// Holder vanished between issue and redeem; treat the token
			// as dead rather than leak which part failed.
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	date := model.Today()
	result := &GlanceResult{
		HolderID:   holder.ID,
		HolderName: holder.FullName,
		ProgramID:  holder.ProgramID,
		Date:       date,
	}

	if cached, ok := s.cache.Get(holder.ID.String(), date); ok {
		result.Remaining = cached.Remaining
		result.FromCache = true
		return result, nil
	}

	prom.IncCounterVec(prom.SystemLedger, prom.MetricBalanceCacheMiss, "glance")

	balance, err := s.ledger.GetBalance(ctx, holder.ID, date)
	if err != nil {
		if errors.Is(err, ErrNoAllowance) {
			result.Remaining = decimal.Zero
			return result, nil
		}
		return nil, err
	}

	s.cache.Put(holder.ID.String(), date, balance.Remaining)
	result.Remaining = balance.Remaining
	return result, nil
}

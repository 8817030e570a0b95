package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/internal/repository"
	"github.com/osool/allowance-gateway/pkg/logger"
	"github.com/osool/allowance-gateway/pkg/prom"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrHolderInactive      = errors.New("holder account is not active")
	ErrInsufficientBalance = errors.New("insufficient balance for this charge")
	ErrNoAllowance         = errors.New("no allowance set for this day")
	ErrNotFound            = errors.New("resource not found")
)

type AllowanceRepository interface {
	Get(ctx context.Context, holderID uuid.UUID, date string) (*model.DailyAllowance, error)
	GetForUpdate(ctx context.Context, holderID uuid.UUID, date string) (*model.DailyAllowance, error)
	Create(ctx context.Context, a *model.DailyAllowance) (*model.DailyAllowance, error)
	UpdateAmounts(ctx context.Context, a *model.DailyAllowance) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	SpentForDay(ctx context.Context, holderID uuid.UUID, date string) (decimal.Decimal, error)
	ListForDay(ctx context.Context, holderID uuid.UUID, date string) ([]*model.Transaction, error)
}

type HolderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Holder, error)
	ListActive(ctx context.Context, kind *model.HolderKind) ([]*model.Holder, error)
}

type ProgramDirectory interface {
	GetProgram(ctx context.Context, id uuid.UUID) (*model.Program, error)
}

// AuditSink receives fire-and-forget event notifications. Implementations
// must never block the caller.
type AuditSink interface {
	Emit(action string, fields map[string]interface{})
}

type BalanceCache interface {
	Put(holderID string, date string, remaining decimal.Decimal)
	Get(holderID string, date string) (*model.CachedBalance, bool)
	Invalidate(holderID string, date string)
}

type ChargeRequest struct {
	HolderID uuid.UUID
	Amount   decimal.Decimal
	Actor    string
	Location *string
	Notes    *string
}

// LedgerService owns the daily allowance rows and the append-only
// transaction log. Every balance decision is made against the durable
// store inside a transaction; the cache is only ever written after
// commit and only ever read by the glance path.
type LedgerService struct {
	allowanceRepo AllowanceRepository
	txnRepo       TransactionRepository
	holderRepo    HolderRepository
	directory     ProgramDirectory
	cache         BalanceCache
	audit         AuditSink
	defaultBase   decimal.Decimal
}

func NewLedgerService(
	allowanceRepo AllowanceRepository,
	txnRepo TransactionRepository,
	holderRepo HolderRepository,
	directory ProgramDirectory,
	cache BalanceCache,
	audit AuditSink,
	defaultBase decimal.Decimal,
) *LedgerService {
	return &LedgerService{
		allowanceRepo: allowanceRepo,
		txnRepo:       txnRepo,
		holderRepo:    holderRepo,
		directory:     directory,
		cache:         cache,
		audit:         audit,
		defaultBase:   defaultBase,
	}
}

// ResetAllowance upserts today's allowance row for the holder. When base
// is nil the holder's program default applies. An existing bonus survives
// the reset; only the base is replaced.
func (s *LedgerService) ResetAllowance(ctx context.Context, holderID uuid.UUID, base *decimal.Decimal) (*model.DailyAllowance, error) {
	holder, err := s.activeHolder(ctx, holderID)
	if err != nil {
		return nil, err
	}

	baseAmount, err := s.resolveBase(ctx, holder, base)
	if err != nil {
		return nil, err
	}
	if baseAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	date := model.Today()
	var out *model.DailyAllowance
	err = s.allowanceRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		allowance, err := s.upsertForUpdate(ctx, holderID, date, baseAmount)
		if err != nil {
			return err
		}
		allowance.BaseAmount = baseAmount
		allowance.TotalAmount = baseAmount.Add(allowance.BonusAmount)
		allowance.ResetAt = time.Now().UTC()
		if err := s.allowanceRepo.UpdateAmounts(ctx, allowance); err != nil {
			return err
		}
		out = allowance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx, holderID, date)
	s.audit.Emit("allowance_reset", map[string]interface{}{
		"holder_id": holderID.String(),
		"date":      date,
		"base":      out.BaseAmount.String(),
	})
	return out, nil
}

// ResetAllAllowances resets today's row for every active holder. A
// failure on one holder is logged and skipped so a bulk morning reset
// never stops halfway.
func (s *LedgerService) ResetAllAllowances(ctx context.Context, base *decimal.Decimal) (int, error) {
	holders, err := s.holderRepo.ListActive(ctx, nil)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, h := range holders {
		if _, err := s.ResetAllowance(ctx, h.ID, base); err != nil {
			logger.Warn("bulk reset skipped holder", "holder_id", h.ID.String(), "error", err)
			continue
		}
		count++
	}
	return count, nil
}

// BumpAllowance adds a bonus on top of today's base. Creates the row
// with the program default base when the holder has not been reset yet.
func (s *LedgerService) BumpAllowance(ctx context.Context, holderID uuid.UUID, bonus decimal.Decimal) (*model.DailyAllowance, error) {
	if !bonus.IsPositive() {
		return nil, ErrInvalidAmount
	}

	holder, err := s.activeHolder(ctx, holderID)
	if err != nil {
		return nil, err
	}

	defaultBase, err := s.resolveBase(ctx, holder, nil)
	if err != nil {
		return nil, err
	}

	date := model.Today()
	var out *model.DailyAllowance
	err = s.allowanceRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		allowance, err := s.upsertForUpdate(ctx, holderID, date, defaultBase)
		if err != nil {
			return err
		}
		allowance.BonusAmount = allowance.BonusAmount.Add(bonus)
		allowance.TotalAmount = allowance.BaseAmount.Add(allowance.BonusAmount)
		if err := s.allowanceRepo.UpdateAmounts(ctx, allowance); err != nil {
			return err
		}
		out = allowance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx, holderID, date)
	s.audit.Emit("allowance_bump", map[string]interface{}{
		"holder_id": holderID.String(),
		"date":      date,
		"bonus":     bonus.String(),
	})
	return out, nil
}

// GetBalance computes the authoritative balance from the durable store.
// The cache is never consulted here.
func (s *LedgerService) GetBalance(ctx context.Context, holderID uuid.UUID, date string) (*model.Balance, error) {
	if date == "" {
		date = model.Today()
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	if _, err := s.holderRepo.GetByID(ctx, holderID); err != nil {
		return nil, mapHolderErr(err)
	}

	allowance, err := s.allowanceRepo.Get(ctx, holderID, date)
	if err != nil {
		if errors.Is(err, repository.ErrAllowanceNotFound) {
			return nil, ErrNoAllowance
		}
		return nil, err
	}

	spent, err := s.txnRepo.SpentForDay(ctx, holderID, date)
	if err != nil {
		return nil, err
	}

	remaining := allowance.TotalAmount.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return &model.Balance{
		HolderID:  holderID,
		Date:      date,
		Base:      allowance.BaseAmount,
		Bonus:     allowance.BonusAmount,
		Total:     allowance.TotalAmount,
		Spent:     spent,
		Remaining: remaining,
	}, nil
}

// Charge debits the holder's allowance for today. The lock-recompute-insert
// sequence runs in one database transaction, so two concurrent charges for
// the same holder serialize and the second sees the first one's spend.
func (s *LedgerService) Charge(ctx context.Context, req ChargeRequest) (*model.Transaction, error) {
	start := time.Now()

	if !req.Amount.IsPositive() {
		prom.AddChargeDuration(time.Since(start).Seconds(), "invalid_amount")
		return nil, ErrInvalidAmount
	}

	holder, err := s.activeHolder(ctx, req.HolderID)
	if err != nil {
		prom.AddChargeDuration(time.Since(start).Seconds(), "rejected")
		return nil, err
	}

	date := model.Today()
	var created *model.Transaction
	err = s.allowanceRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		allowance, err := s.allowanceRepo.GetForUpdate(ctx, req.HolderID, date)
		if err != nil {
			if errors.Is(err, repository.ErrAllowanceNotFound) {
				return ErrNoAllowance
			}
			return err
		}

		spent, err := s.txnRepo.SpentForDay(ctx, req.HolderID, date)
		if err != nil {
			return err
		}

		remaining := allowance.TotalAmount.Sub(spent)
		if remaining.LessThan(req.Amount) {
			return ErrInsufficientBalance
		}

		txn := &model.Transaction{
			HolderID:     req.HolderID,
			ProgramID:    holder.ProgramID,
			Date:         date,
			Amount:       req.Amount,
			BalanceAfter: remaining.Sub(req.Amount),
			Actor:        req.Actor,
			Location:     req.Location,
			Notes:        req.Notes,
		}
		created, err = s.txnRepo.Create(ctx, txn)
		return err
	})
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, ErrInsufficientBalance):
			outcome = "insufficient"
		case errors.Is(err, ErrNoAllowance):
			outcome = "no_allowance"
		}
		prom.AddChargeDuration(time.Since(start).Seconds(), outcome)
		prom.IncCounterVec(prom.SystemLedger, prom.MetricChargeOutcome, outcome)
		return nil, err
	}

	s.cache.Put(req.HolderID.String(), date, created.BalanceAfter)
	s.audit.Emit("charge", map[string]interface{}{
		"holder_id":     req.HolderID.String(),
		"date":          date,
		"amount":        created.Amount.String(),
		"balance_after": created.BalanceAfter.String(),
		"actor":         req.Actor,
	})
	prom.AddChargeDuration(time.Since(start).Seconds(), "ok")
	prom.IncCounterVec(prom.SystemLedger, prom.MetricChargeOutcome, "ok")
	return created, nil
}

// Transactions returns the holder's debits for a day in insertion order.
func (s *LedgerService) Transactions(ctx context.Context, holderID uuid.UUID, date string) ([]*model.Transaction, error) {
	if date == "" {
		date = model.Today()
	}
	if _, err := s.holderRepo.GetByID(ctx, holderID); err != nil {
		return nil, mapHolderErr(err)
	}
	return s.txnRepo.ListForDay(ctx, holderID, date)
}

func (s *LedgerService) activeHolder(ctx context.Context, holderID uuid.UUID) (*model.Holder, error) {
	holder, err := s.holderRepo.GetByID(ctx, holderID)
	if err != nil {
		return nil, mapHolderErr(err)
	}
	if !holder.IsActive {
		return nil, ErrHolderInactive
	}
	return holder, nil
}

func (s *LedgerService) resolveBase(ctx context.Context, holder *model.Holder, base *decimal.Decimal) (decimal.Decimal, error) {
	if base != nil {
		return *base, nil
	}
	program, err := s.directory.GetProgram(ctx, holder.ProgramID)
	if err != nil {
		if errors.Is(err, repository.ErrProgramNotFound) {
			return s.defaultBase, nil
		}
		return decimal.Zero, err
	}
	return program.DefaultAllowance, nil
}

// upsertForUpdate returns today's row locked for update, creating it
// first when absent. Losing the create race is fine; the conflict error
// just means someone else made the row, so re-read it under the lock.
func (s *LedgerService) upsertForUpdate(ctx context.Context, holderID uuid.UUID, date string, base decimal.Decimal) (*model.DailyAllowance, error) {
	allowance, err := s.allowanceRepo.GetForUpdate(ctx, holderID, date)
	if err == nil {
		return allowance, nil
	}
	if !errors.Is(err, repository.ErrAllowanceNotFound) {
		return nil, err
	}

	fresh := &model.DailyAllowance{
		HolderID:    holderID,
		Date:        date,
		BaseAmount:  base,
		BonusAmount: decimal.Zero,
		TotalAmount: base,
		ResetAt:     time.Now().UTC(),
	}
	created, err := s.allowanceRepo.Create(ctx, fresh)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}
	return s.allowanceRepo.GetForUpdate(ctx, holderID, date)
}

func (s *LedgerService) refreshCache(ctx context.Context, holderID uuid.UUID, date string) {
	balance, err := s.GetBalance(ctx, holderID, date)
	if err != nil {
		s.cache.Invalidate(holderID.String(), date)
		return
	}
	s.cache.Put(holderID.String(), date, balance.Remaining)
}

func mapHolderErr(err error) error {
	if errors.Is(err, repository.ErrHolderNotFound) {
		return ErrNotFound
	}
	return err
}

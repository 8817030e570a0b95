package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/audit"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/internal/repository"
	"github.com/osool/allowance-gateway/pkg/pg"
	"github.com/osool/allowance-gateway/test/helpers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	svc     *LedgerService
	cache   *BalanceCacheService
	db      *pg.DB
	program *repository.ProgramEntity
	holder  *repository.HolderEntity
}

func setupLedger(t *testing.T) *ledgerFixture {
	db := helpers.SetupTestDB(t)
	_, adapter := helpers.SetupTestRedis(t)

	program := helpers.CreateTestProgram(t, db, "100.00")
	holder := helpers.CreateTestHolder(t, db, program.ID, model.HolderStudent, true)

	cache := NewBalanceCacheService(adapter, 24*time.Hour)
	svc := NewLedgerService(
		repository.NewAllowanceRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewHolderRepository(db),
		repository.NewDirectoryRepository(db),
		cache,
		audit.NopSink{},
		decimal.RequireFromString("100.00"),
	)

	return &ledgerFixture{
		svc:     svc,
		cache:   cache,
		db:      db,
		program: program,
		holder:  holder,
	}
}

func TestLedgerService_ResetAllowance(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	t.Run("defaults to program allowance", func(t *testing.T) {
		allowance, err := f.svc.ResetAllowance(ctx, f.holder.ID, nil)
		require.NoError(t, err)
		assert.True(t, allowance.BaseAmount.Equal(decimal.RequireFromString("100.00")))
		assert.True(t, allowance.TotalAmount.Equal(decimal.RequireFromString("100.00")))
		assert.Equal(t, model.Today(), allowance.Date)
	})

	t.Run("explicit base wins and is idempotent per day", func(t *testing.T) {
		base := decimal.RequireFromString("60.00")
		allowance, err := f.svc.ResetAllowance(ctx, f.holder.ID, &base)
		require.NoError(t, err)
		assert.True(t, allowance.BaseAmount.Equal(base))

		// Same (holder, date): a second reset mutates, never duplicates.
		again, err := f.svc.ResetAllowance(ctx, f.holder.ID, &base)
		require.NoError(t, err)
		assert.Equal(t, allowance.ID, again.ID)
	})

	t.Run("reset preserves bonus", func(t *testing.T) {
		_, err := f.svc.BumpAllowance(ctx, f.holder.ID, decimal.RequireFromString("25.00"))
		require.NoError(t, err)

		base := decimal.RequireFromString("80.00")
		allowance, err := f.svc.ResetAllowance(ctx, f.holder.ID, &base)
		require.NoError(t, err)
		assert.True(t, allowance.BonusAmount.Equal(decimal.RequireFromString("25.00")))
		assert.True(t, allowance.TotalAmount.Equal(decimal.RequireFromString("105.00")))
	})

	t.Run("negative base rejected", func(t *testing.T) {
		base := decimal.RequireFromString("-1.00")
		_, err := f.svc.ResetAllowance(ctx, f.holder.ID, &base)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("inactive holder rejected", func(t *testing.T) {
		inactive := helpers.CreateTestHolder(t, f.db, f.program.ID, model.HolderStudent, false)
		_, err := f.svc.ResetAllowance(ctx, inactive.ID, nil)
		assert.ErrorIs(t, err, ErrHolderInactive)
	})

	t.Run("unknown holder", func(t *testing.T) {
		_, err := f.svc.ResetAllowance(ctx, uuid.New(), nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLedgerService_ResetAllAllowances(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	teacher := helpers.CreateTestHolder(t, f.db, f.program.ID, model.HolderTeacher, true)
	helpers.CreateTestHolder(t, f.db, f.program.ID, model.HolderStudent, false)

	count, err := f.svc.ResetAllAllowances(ctx, nil)
	require.NoError(t, err)
	// The fixture student plus the teacher; the inactive one is skipped.
	assert.Equal(t, 2, count)

	balance, err := f.svc.GetBalance(ctx, teacher.ID, model.Today())
	require.NoError(t, err)
	assert.True(t, balance.Remaining.Equal(decimal.RequireFromString("100.00")))
}

func TestLedgerService_BumpAllowance(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	t.Run("creates the day row when absent", func(t *testing.T) {
		allowance, err := f.svc.BumpAllowance(ctx, f.holder.ID, decimal.RequireFromString("10.00"))
		require.NoError(t, err)
		assert.True(t, allowance.BaseAmount.Equal(decimal.RequireFromString("100.00")))
		assert.True(t, allowance.BonusAmount.Equal(decimal.RequireFromString("10.00")))
		assert.True(t, allowance.TotalAmount.Equal(decimal.RequireFromString("110.00")))
	})

	t.Run("bonuses accumulate", func(t *testing.T) {
		allowance, err := f.svc.BumpAllowance(ctx, f.holder.ID, decimal.RequireFromString("5.00"))
		require.NoError(t, err)
		assert.True(t, allowance.BonusAmount.Equal(decimal.RequireFromString("15.00")))
	})

	t.Run("non-positive bonus rejected", func(t *testing.T) {
		_, err := f.svc.BumpAllowance(ctx, f.holder.ID, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = f.svc.BumpAllowance(ctx, f.holder.ID, decimal.RequireFromString("-5.00"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestLedgerService_Charge(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	_, err := f.svc.ResetAllowance(ctx, f.holder.ID, nil)
	require.NoError(t, err)

	t.Run("happy path", func(t *testing.T) {
		txn, err := f.svc.Charge(ctx, ChargeRequest{
			HolderID: f.holder.ID,
			Amount:   decimal.RequireFromString("12.50"),
			Actor:    "POS_1",
		})
		require.NoError(t, err)
		assert.True(t, txn.Amount.Equal(decimal.RequireFromString("12.50")))
		assert.True(t, txn.BalanceAfter.Equal(decimal.RequireFromString("87.50")))

		cached, ok := f.cache.Get(f.holder.ID.String(), model.Today())
		require.True(t, ok)
		assert.True(t, cached.Remaining.Equal(decimal.RequireFromString("87.50")))
	})

	t.Run("insufficient balance leaves the ledger untouched", func(t *testing.T) {
		before, err := f.svc.GetBalance(ctx, f.holder.ID, model.Today())
		require.NoError(t, err)

		_, err = f.svc.Charge(ctx, ChargeRequest{
			HolderID: f.holder.ID,
			Amount:   before.Remaining.Add(decimal.RequireFromString("0.01")),
			Actor:    "POS_1",
		})
		assert.ErrorIs(t, err, ErrInsufficientBalance)

		after, err := f.svc.GetBalance(ctx, f.holder.ID, model.Today())
		require.NoError(t, err)
		assert.True(t, after.Remaining.Equal(before.Remaining))
		assert.True(t, after.Spent.Equal(before.Spent))
	})

	t.Run("exact remaining spends to zero", func(t *testing.T) {
		balance, err := f.svc.GetBalance(ctx, f.holder.ID, model.Today())
		require.NoError(t, err)

		txn, err := f.svc.Charge(ctx, ChargeRequest{
			HolderID: f.holder.ID,
			Amount:   balance.Remaining,
			Actor:    "POS_1",
		})
		require.NoError(t, err)
		assert.True(t, txn.BalanceAfter.IsZero())

		_, err = f.svc.Charge(ctx, ChargeRequest{
			HolderID: f.holder.ID,
			Amount:   decimal.RequireFromString("0.01"),
			Actor:    "POS_1",
		})
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := f.svc.Charge(ctx, ChargeRequest{
			HolderID: f.holder.ID,
			Amount:   decimal.Zero,
			Actor:    "POS_1",
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("no allowance row for today", func(t *testing.T) {
		fresh := helpers.CreateTestHolder(t, f.db, f.program.ID, model.HolderStudent, true)
		_, err := f.svc.Charge(ctx, ChargeRequest{
			HolderID: fresh.ID,
			Amount:   decimal.RequireFromString("1.00"),
			Actor:    "POS_1",
		})
		assert.ErrorIs(t, err, ErrNoAllowance)
	})

	t.Run("inactive holder", func(t *testing.T) {
		inactive := helpers.CreateTestHolder(t, f.db, f.program.ID, model.HolderStudent, false)
		_, err := f.svc.Charge(ctx, ChargeRequest{
			HolderID: inactive.ID,
			Amount:   decimal.RequireFromString("1.00"),
			Actor:    "POS_1",
		})
		assert.ErrorIs(t, err, ErrHolderInactive)
	})
}

func TestLedgerService_ConcurrentCharges(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	base := decimal.RequireFromString("100.00")
	_, err := f.svc.ResetAllowance(ctx, f.holder.ID, &base)
	require.NoError(t, err)

	// 30 concurrent charges of 10.00 against 100.00: exactly 10 may win.
	concurrency := 30
	amount := decimal.RequireFromString("10.00")
	var wg sync.WaitGroup
	var successes, insufficient int32

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Charge(ctx, ChargeRequest{
				HolderID: f.holder.ID,
				Amount:   amount,
				Actor:    "POS_RACE",
			})
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, ErrInsufficientBalance):
				atomic.AddInt32(&insufficient, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), successes)
	assert.Equal(t, int32(concurrency)-successes, insufficient)

	balance, err := f.svc.GetBalance(ctx, f.holder.ID, model.Today())
	require.NoError(t, err)
	assert.True(t, balance.Remaining.IsZero(), "remaining %s", balance.Remaining)
	assert.True(t, balance.Spent.Equal(decimal.RequireFromString("100.00")))
}

func TestLedgerService_GetBalance(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	t.Run("no allowance", func(t *testing.T) {
		_, err := f.svc.GetBalance(ctx, f.holder.ID, model.Today())
		assert.ErrorIs(t, err, ErrNoAllowance)
	})

	t.Run("remaining floors at zero", func(t *testing.T) {
		_, err := f.svc.ResetAllowance(ctx, f.holder.ID, nil)
		require.NoError(t, err)

		_, err = f.svc.Charge(ctx, ChargeRequest{
			HolderID: f.holder.ID,
			Amount:   decimal.RequireFromString("100.00"),
			Actor:    "POS_1",
		})
		require.NoError(t, err)

		// Shrinking the allowance below what was already spent must not
		// produce a negative remaining.
		base := decimal.RequireFromString("40.00")
		_, err = f.svc.ResetAllowance(ctx, f.holder.ID, &base)
		require.NoError(t, err)

		balance, err := f.svc.GetBalance(ctx, f.holder.ID, model.Today())
		require.NoError(t, err)
		assert.True(t, balance.Remaining.IsZero())
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := f.svc.GetBalance(ctx, f.holder.ID, "29-08-2026")
		assert.Error(t, err)
	})
}

func TestLedgerService_Transactions(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	_, err := f.svc.ResetAllowance(ctx, f.holder.ID, nil)
	require.NoError(t, err)

	amounts := []string{"5.00", "7.50", "2.25"}
	for _, a := range amounts {
		_, err := f.svc.Charge(ctx, ChargeRequest{
			HolderID: f.holder.ID,
			Amount:   decimal.RequireFromString(a),
			Actor:    "POS_1",
		})
		require.NoError(t, err)
	}

	items, err := f.svc.Transactions(ctx, f.holder.ID, model.Today())
	require.NoError(t, err)
	require.Len(t, items, 3)

	// balance_after must be consistent with insertion order.
	running := decimal.RequireFromString("100.00")
	for i, a := range amounts {
		running = running.Sub(decimal.RequireFromString(a))
		assert.True(t, items[i].BalanceAfter.Equal(running))
	}
}

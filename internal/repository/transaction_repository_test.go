package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	t.Run("assigns id and created_at", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.Transaction{
			HolderID:     uuid.New(),
			ProgramID:    uuid.New(),
			Date:         "2026-08-29",
			Amount:       decimal.RequireFromString("12.50"),
			BalanceAfter: decimal.RequireFromString("87.50"),
			Actor:        "POS_1",
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.False(t, created.CreatedAt.IsZero())
	})

	t.Run("keeps optional fields", func(t *testing.T) {
		location := "cafeteria-1"
		notes := "lunch"
		created, err := repo.Create(ctx, &model.Transaction{
			HolderID:     uuid.New(),
			ProgramID:    uuid.New(),
			Date:         "2026-08-29",
			Amount:       decimal.RequireFromString("4.00"),
			BalanceAfter: decimal.RequireFromString("96.00"),
			Actor:        "POS_1",
			Location:     &location,
			Notes:        &notes,
		})
		require.NoError(t, err)
		require.NotNil(t, created.Location)
		assert.Equal(t, "cafeteria-1", *created.Location)
	})
}

func TestTransactionRepository_SpentForDay(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	t.Run("no transactions means zero", func(t *testing.T) {
		spent, err := repo.SpentForDay(ctx, uuid.New(), "2026-08-29")
		require.NoError(t, err)
		assert.True(t, spent.IsZero())
	})

	t.Run("sums only the holder's day", func(t *testing.T) {
		holderID := uuid.New()
		other := uuid.New()
		programID := uuid.New()

		for _, amount := range []string{"10.00", "2.25", "0.75"} {
			_, err := repo.Create(ctx, &model.Transaction{
				HolderID:     holderID,
				ProgramID:    programID,
				Date:         "2026-08-29",
				Amount:       decimal.RequireFromString(amount),
				BalanceAfter: decimal.Zero,
				Actor:        "POS_1",
			})
			require.NoError(t, err)
		}
		// Different day and different holder must not count.
		_, err := repo.Create(ctx, &model.Transaction{
			HolderID:     holderID,
			ProgramID:    programID,
			Date:         "2026-08-28",
			Amount:       decimal.RequireFromString("99.00"),
			BalanceAfter: decimal.Zero,
			Actor:        "POS_1",
		})
		require.NoError(t, err)
		_, err = repo.Create(ctx, &model.Transaction{
			HolderID:     other,
			ProgramID:    programID,
			Date:         "2026-08-29",
			Amount:       decimal.RequireFromString("50.00"),
			BalanceAfter: decimal.Zero,
			Actor:        "POS_1",
		})
		require.NoError(t, err)

		spent, err := repo.SpentForDay(ctx, holderID, "2026-08-29")
		require.NoError(t, err)
		assert.True(t, spent.Equal(decimal.RequireFromString("13.00")), "got %s", spent)
	})
}

func TestTransactionRepository_ListForDay(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	holderID := uuid.New()
	programID := uuid.New()
	amounts := []string{"1.00", "2.00", "3.00"}
	for _, amount := range amounts {
		_, err := repo.Create(ctx, &model.Transaction{
			HolderID:     holderID,
			ProgramID:    programID,
			Date:         "2026-08-29",
			Amount:       decimal.RequireFromString(amount),
			BalanceAfter: decimal.Zero,
			Actor:        "POS_1",
		})
		require.NoError(t, err)
	}

	items, err := repo.ListForDay(ctx, holderID, "2026-08-29")
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, amount := range amounts {
		assert.True(t, items[i].Amount.Equal(decimal.RequireFromString(amount)))
	}

	items, err = repo.ListForDay(ctx, holderID, "2026-08-28")
	require.NoError(t, err)
	assert.Empty(t, items)
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/pkg/pg"
	"github.com/shopspring/decimal"
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

// SpentForDay sums the day's debits for a holder. Amounts are summed in
// Go on the exact decimal type; SQL SUM would coerce through the
// driver's numeric representation.
func (r *TransactionRepository) SpentForDay(ctx context.Context, holderID uuid.UUID, date string) (decimal.Decimal, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).
		Select("amount").
		Where("holder_id = ? AND date = ?", holderID, date).
		Find(&entities).
		Error
	if err != nil {
		return decimal.Zero, err
	}

	spent := decimal.Zero
	for _, e := range entities {
		spent = spent.Add(e.Amount)
	}
	return spent, nil
}

// ListForDay returns the holder's transactions for a date in insertion
// order.
func (r *TransactionRepository) ListForDay(ctx context.Context, holderID uuid.UUID, date string) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).
		Where("holder_id = ? AND date = ?", holderID, date).
		Order("created_at asc").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AllowanceRepository struct {
	*pg.DB
}

func NewAllowanceRepository(db *pg.DB) *AllowanceRepository {
	return &AllowanceRepository{
		db,
	}
}

func (r *AllowanceRepository) Get(ctx context.Context, holderID uuid.UUID, date string) (*model.DailyAllowance, error) {
	var entity AllowanceEntity
	err := r.Read(ctx).
		Where("holder_id = ? AND date = ?", holderID, date).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAllowanceNotFound
		}
		return nil, err
	}
	return toAllowanceModel(&entity), nil
}

// GetForUpdate reads the allowance row holding a row-level lock for the
// remainder of the surrounding transaction. Every balance-mutating path
// (reset, bump, charge) must go through this so concurrent writers for
// the same (holder, date) serialize on the row instead of interleaving
// between the balance read and the write.
func (r *AllowanceRepository) GetForUpdate(ctx context.Context, holderID uuid.UUID, date string) (*model.DailyAllowance, error) {
	q := r.Write(ctx).Where("holder_id = ? AND date = ?", holderID, date)
	// sqlite (tests) has no FOR UPDATE; its single-writer transaction
	// model gives the same serialization.
	if r.Write(ctx).Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var entity AllowanceEntity
	if err := q.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAllowanceNotFound
		}
		return nil, err
	}
	return toAllowanceModel(&entity), nil
}

func (r *AllowanceRepository) Create(ctx context.Context, a *model.DailyAllowance) (*model.DailyAllowance, error) {
	entity := toAllowanceEntity(a)
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost the insert race for (holder, date); the caller
			// re-reads under lock and mutates the winner's row.
			return nil, gorm.ErrDuplicatedKey
		}
		return nil, err
	}
	return toAllowanceModel(entity), nil
}

// UpdateAmounts persists the recomputed base/bonus/total of a row the
// caller already holds the lock on.
func (r *AllowanceRepository) UpdateAmounts(ctx context.Context, a *model.DailyAllowance) error {
	result := r.Write(ctx).
		Model(&AllowanceEntity{}).
		Where("id = ?", a.ID).
		Updates(map[string]interface{}{
			"base_amount":  a.BaseAmount,
			"bonus_amount": a.BonusAmount,
			"total_amount": a.TotalAmount,
			"reset_at":     a.ResetAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAllowanceNotFound
	}
	return nil
}

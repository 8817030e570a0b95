package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/shopspring/decimal"
)

type AllowanceEntity struct {
	ID          uuid.UUID       `db:"id"           gorm:"primaryKey;type:uuid;column:id"`
	HolderID    uuid.UUID       `db:"holder_id"    gorm:"column:holder_id;type:uuid;not null;uniqueIndex:uq_holder_date"`
	Date        string          `db:"date"         gorm:"column:date;not null;uniqueIndex:uq_holder_date"`
	BaseAmount  decimal.Decimal `db:"base_amount"  gorm:"column:base_amount;type:numeric(10,2);not null"`
	BonusAmount decimal.Decimal `db:"bonus_amount" gorm:"column:bonus_amount;type:numeric(10,2);not null"`
	TotalAmount decimal.Decimal `db:"total_amount" gorm:"column:total_amount;type:numeric(10,2);not null"`
	ResetAt     time.Time       `db:"reset_at"     gorm:"column:reset_at;not null"`
}

func (AllowanceEntity) TableName() string {
	return "daily_allowances"
}

func toAllowanceEntity(m *model.DailyAllowance) *AllowanceEntity {
	if m == nil {
		return nil
	}
	return &AllowanceEntity{
		ID:          m.ID,
		HolderID:    m.HolderID,
		Date:        m.Date,
		BaseAmount:  m.BaseAmount,
		BonusAmount: m.BonusAmount,
		TotalAmount: m.TotalAmount,
		ResetAt:     m.ResetAt,
	}
}

func toAllowanceModel(e *AllowanceEntity) *model.DailyAllowance {
	if e == nil {
		return nil
	}
	return &model.DailyAllowance{
		ID:          e.ID,
		HolderID:    e.HolderID,
		Date:        e.Date,
		BaseAmount:  e.BaseAmount,
		BonusAmount: e.BonusAmount,
		TotalAmount: e.TotalAmount,
		ResetAt:     e.ResetAt,
	}
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used for allowance rows,
// transaction day buckets, and cache keys.
const DateLayout = "2006-01-02"

func Today() string {
	return time.Now().UTC().Format(DateLayout)
}

// DailyAllowance is the per-(holder, date) allowance row. Exactly one row
// may exist per pair; total is always base + bonus.
type DailyAllowance struct {
	ID          uuid.UUID       `json:"id"           db:"id"           gorm:"primaryKey;type:uuid;column:id"`
	HolderID    uuid.UUID       `json:"holder_id"    db:"holder_id"    gorm:"column:holder_id;type:uuid;not null;uniqueIndex:uq_holder_date"`
	Date        string          `json:"date"         db:"date"         gorm:"column:date;not null;uniqueIndex:uq_holder_date"`
	BaseAmount  decimal.Decimal `json:"base_amount"  db:"base_amount"  gorm:"column:base_amount;type:numeric(10,2);not null"`
	BonusAmount decimal.Decimal `json:"bonus_amount" db:"bonus_amount" gorm:"column:bonus_amount;type:numeric(10,2);not null"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount" gorm:"column:total_amount;type:numeric(10,2);not null"`
	ResetAt     time.Time       `json:"reset_at"     db:"reset_at"     gorm:"column:reset_at;not null"`
}

func (DailyAllowance) TableName() string { return "daily_allowances" }

// Balance is the authoritative view computed from the durable store.
type Balance struct {
	HolderID  uuid.UUID       `json:"holder_id"`
	Date      string          `json:"date"`
	Base      decimal.Decimal `json:"base_amount"`
	Bonus     decimal.Decimal `json:"bonus_amount"`
	Total     decimal.Decimal `json:"total_amount"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
}

// CachedBalance is the cache-side mirror of remaining balance. Display
// only; never an input to a charge decision.
type CachedBalance struct {
	Remaining decimal.Decimal `json:"remaining"`
	UpdatedAt time.Time       `json:"updated_at"`
}

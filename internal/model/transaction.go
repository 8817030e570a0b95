package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is one immutable debit against a holder's daily allowance.
// Rows are append-only; nothing updates or deletes them.
type Transaction struct {
	ID           uuid.UUID       `json:"id"            db:"id"            gorm:"primaryKey;type:uuid;column:id"`
	HolderID     uuid.UUID       `json:"holder_id"     db:"holder_id"     gorm:"column:holder_id;type:uuid;not null;index:idx_txn_holder_date"`
	ProgramID    uuid.UUID       `json:"program_id"    db:"program_id"    gorm:"column:program_id;type:uuid;not null"`
	Date         string          `json:"date"          db:"date"          gorm:"column:date;not null;index:idx_txn_holder_date"`
	Amount       decimal.Decimal `json:"amount"        db:"amount"        gorm:"column:amount;type:numeric(10,2);not null"`
	BalanceAfter decimal.Decimal `json:"balance_after" db:"balance_after" gorm:"column:balance_after;type:numeric(10,2);not null"`
	Actor        string          `json:"actor"         db:"actor"         gorm:"column:actor;not null"`
	Location     *string         `json:"location,omitempty" db:"location" gorm:"column:location"`
	Notes        *string         `json:"notes,omitempty"    db:"notes"    gorm:"column:notes"`
	CreatedAt    time.Time       `json:"created_at"    db:"created_at"    gorm:"column:created_at;not null"`
}

func (Transaction) TableName() string { return "transactions" }

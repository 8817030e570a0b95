package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/shopspring/decimal"
)

type TransactionEntity struct {
	ID           uuid.UUID       `db:"id"            gorm:"primaryKey;type:uuid;column:id"`
	HolderID     uuid.UUID       `db:"holder_id"     gorm:"column:holder_id;type:uuid;not null;index:idx_txn_holder_date"`
	ProgramID    uuid.UUID       `db:"program_id"    gorm:"column:program_id;type:uuid;not null"`
	Date         string          `db:"date"          gorm:"column:date;not null;index:idx_txn_holder_date"`
	Amount       decimal.Decimal `db:"amount"        gorm:"column:amount;type:numeric(10,2);not null"`
	BalanceAfter decimal.Decimal `db:"balance_after" gorm:"column:balance_after;type:numeric(10,2);not null"`
	Actor        string          `db:"actor"         gorm:"column:actor;not null"`
	Location     *string         `db:"location"      gorm:"column:location"`
	Notes        *string         `db:"notes"         gorm:"column:notes"`
	CreatedAt    time.Time       `db:"created_at"    gorm:"column:created_at;not null"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:           m.ID,
		HolderID:     m.HolderID,
		ProgramID:    m.ProgramID,
		Date:         m.Date,
		Amount:       m.Amount,
		BalanceAfter: m.BalanceAfter,
		Actor:        m.Actor,
		Location:     m.Location,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:           e.ID,
		HolderID:     e.HolderID,
		ProgramID:    e.ProgramID,
		Date:         e.Date,
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		Actor:        e.Actor,
		Location:     e.Location,
		Notes:        e.Notes,
		CreatedAt:    e.CreatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}

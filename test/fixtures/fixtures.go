package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/shopspring/decimal"
)

var (
	DefaultAllowance = decimal.RequireFromString("100.00")
	LunchPrice       = decimal.RequireFromString("12.50")
	SnackPrice       = decimal.RequireFromString("3.25")
)

func NewTestAllowance(holderID uuid.UUID, date string, base, bonus string) *model.DailyAllowance {
	baseAmount := decimal.RequireFromString(base)
	bonusAmount := decimal.RequireFromString(bonus)
	return &model.DailyAllowance{
		HolderID:    holderID,
		Date:        date,
		BaseAmount:  baseAmount,
		BonusAmount: bonusAmount,
		TotalAmount: baseAmount.Add(bonusAmount),
		ResetAt:     time.Now().UTC(),
	}
}

func NewTestTransaction(holderID, programID uuid.UUID, date string, amount, balanceAfter string) *model.Transaction {
	return &model.Transaction{
		HolderID:     holderID,
		ProgramID:    programID,
		Date:         date,
		Amount:       decimal.RequireFromString(amount),
		BalanceAfter: decimal.RequireFromString(balanceAfter),
		Actor:        "POS_TEST",
	}
}

func NewTestSession(classID, teacherID uuid.UUID, date string) *model.AttendanceSession {
	return &model.AttendanceSession{
		ClassID:   classID,
		Date:      date,
		Mode:      model.ModeDynamic,
		CreatedBy: teacherID,
	}
}

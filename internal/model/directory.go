package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Program groups holders under a cost center and carries the default
// daily allowance applied when a reset does not name an amount.
type Program struct {
	ID               uuid.UUID       `json:"id"                db:"id"                gorm:"primaryKey;type:uuid;column:id"`
	Name             string          `json:"name"              db:"name"              gorm:"column:name;not null"`
	CostCenterCode   string          `json:"cost_center_code"  db:"cost_center_code"  gorm:"column:cost_center_code;not null"`
	DefaultAllowance decimal.Decimal `json:"default_allowance" db:"default_allowance" gorm:"column:default_allowance;type:numeric(10,2);not null"`
	Active           bool            `json:"active"            db:"active"            gorm:"column:active;not null;default:true"`
}

func (Program) TableName() string { return "programs" }

// Class is a section taught by one teacher.
type Class struct {
	ID        uuid.UUID `json:"id"         db:"id"         gorm:"primaryKey;type:uuid;column:id"`
	Name      string    `json:"name"       db:"name"       gorm:"column:name;not null"`
	ProgramID uuid.UUID `json:"program_id" db:"program_id" gorm:"column:program_id;type:uuid;not null;index"`
	TeacherID uuid.UUID `json:"teacher_id" db:"teacher_id" gorm:"column:teacher_id;type:uuid;not null;index"`
	Active    bool      `json:"active"     db:"active"     gorm:"column:active;not null;default:true"`
}

func (Class) TableName() string { return "classes" }

package repository

import (
	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/shopspring/decimal"
)

type ProgramEntity struct {
	ID               uuid.UUID       `db:"id"                gorm:"primaryKey;type:uuid;column:id"`
	Name             string          `db:"name"              gorm:"column:name;not null"`
	CostCenterCode   string          `db:"cost_center_code"  gorm:"column:cost_center_code;not null"`
	DefaultAllowance decimal.Decimal `db:"default_allowance" gorm:"column:default_allowance;type:numeric(10,2);not null"`
	Active           bool            `db:"active"            gorm:"column:active;not null;default:true"`
}

func (ProgramEntity) TableName() string {
	return "programs"
}

type ClassEntity struct {
	ID        uuid.UUID `db:"id"         gorm:"primaryKey;type:uuid;column:id"`
	Name      string    `db:"name"       gorm:"column:name;not null"`
	ProgramID uuid.UUID `db:"program_id" gorm:"column:program_id;type:uuid;not null;index"`
	TeacherID uuid.UUID `db:"teacher_id" gorm:"column:teacher_id;type:uuid;not null;index"`
	Active    bool      `db:"active"     gorm:"column:active;not null;default:true"`
}

func (ClassEntity) TableName() string {
	return "classes"
}

type EnrollmentEntity struct {
	ClassID  uuid.UUID `db:"class_id"  gorm:"primaryKey;type:uuid;column:class_id"`
	HolderID uuid.UUID `db:"holder_id" gorm:"primaryKey;type:uuid;column:holder_id"`
}

func (EnrollmentEntity) TableName() string {
	return "class_enrollments"
}

func toProgramModel(e *ProgramEntity) *model.Program {
	if e == nil {
		return nil
	}
	return &model.Program{
		ID:               e.ID,
		Name:             e.Name,
		CostCenterCode:   e.CostCenterCode,
		DefaultAllowance: e.DefaultAllowance,
		Active:           e.Active,
	}
}

func toClassModel(e *ClassEntity) *model.Class {
	if e == nil {
		return nil
	}
	return &model.Class{
		ID:        e.ID,
		Name:      e.Name,
		ProgramID: e.ProgramID,
		TeacherID: e.TeacherID,
		Active:    e.Active,
	}
}

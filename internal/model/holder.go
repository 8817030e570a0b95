package model

import (
	"time"

	"github.com/google/uuid"
)

// HolderKind tags which population a holder belongs to. The kind is
// resolved once at the API boundary; nothing downstream infers it from
// id shapes or string prefixes.
type HolderKind string

const (
	HolderStudent HolderKind = "student"
	HolderTeacher HolderKind = "teacher"
)

func (k HolderKind) Valid() bool {
	return k == HolderStudent || k == HolderTeacher
}

// Holder is a student or teacher in the daily allowance program.
type Holder struct {
	ID        uuid.UUID  `json:"id"         db:"id"         gorm:"primaryKey;type:uuid;column:id"`
	Kind      HolderKind `json:"kind"       db:"kind"       gorm:"column:kind;not null"`
	FullName  string     `json:"full_name"  db:"full_name"  gorm:"column:full_name;not null"`
	ProgramID uuid.UUID  `json:"program_id" db:"program_id" gorm:"column:program_id;type:uuid;not null;index"`
	IsActive  bool       `json:"is_active"  db:"is_active"  gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time  `json:"created_at" db:"created_at" gorm:"column:created_at"`
}

func (Holder) TableName() string { return "holders" }

package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
)

type HolderEntity struct {
	ID        uuid.UUID `db:"id"         gorm:"primaryKey;type:uuid;column:id"`
	Kind      string    `db:"kind"       gorm:"column:kind;not null"`
	FullName  string    `db:"full_name"  gorm:"column:full_name;not null"`
	ProgramID uuid.UUID `db:"program_id" gorm:"column:program_id;type:uuid;not null;index"`
	IsActive  bool      `db:"is_active"  gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at"`
}

func (HolderEntity) TableName() string {
	return "holders"
}

func toHolderEntity(m *model.Holder) *HolderEntity {
	if m == nil {
		return nil
	}
	return &HolderEntity{
		ID:        m.ID,
		Kind:      string(m.Kind),
		FullName:  m.FullName,
		ProgramID: m.ProgramID,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
	}
}

func toHolderModel(e *HolderEntity) *model.Holder {
	if e == nil {
		return nil
	}
	return &model.Holder{
		ID:        e.ID,
		Kind:      model.HolderKind(e.Kind),
		FullName:  e.FullName,
		ProgramID: e.ProgramID,
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
	}
}

func toHolderModels(entities []*HolderEntity) []*model.Holder {
	if entities == nil {
		return nil
	}
	models := make([]*model.Holder, len(entities))
	for i, e := range entities {
		models[i] = toHolderModel(e)
	}
	return models
}

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/pkg/pg"
	"gorm.io/gorm"
)

type HolderRepository struct {
	*pg.DB
}

func NewHolderRepository(db *pg.DB) *HolderRepository {
	return &HolderRepository{
		db,
	}
}

func (r *HolderRepository) Create(ctx context.Context, h *model.Holder) (*model.Holder, error) {
	entity := toHolderEntity(h)
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toHolderModel(entity), nil
}

func (r *HolderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Holder, error) {
	var entity HolderEntity
	err := r.Read(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHolderNotFound
		}
		return nil, err
	}
	return toHolderModel(&entity), nil
}

// ListActive returns every active holder, optionally filtered by kind.
// Used by the bulk daily reset.
func (r *HolderRepository) ListActive(ctx context.Context, kind *model.HolderKind) ([]*model.Holder, error) {
	q := r.Read(ctx).Where("is_active = ?", true)
	if kind != nil {
		q = q.Where("kind = ?", string(*kind))
	}

	var entities []*HolderEntity
	if err := q.Order("created_at asc").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toHolderModels(entities), nil
}

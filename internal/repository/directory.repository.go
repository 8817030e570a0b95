package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/pkg/pg"
	"gorm.io/gorm"
)

// DirectoryRepository reads the program/class/enrollment facts owned by
// the external provisioning flows. This service never writes them
// outside of tests.
type DirectoryRepository struct {
	*pg.DB
}

func NewDirectoryRepository(db *pg.DB) *DirectoryRepository {
	return &DirectoryRepository{
		db,
	}
}

func (r *DirectoryRepository) GetProgram(ctx context.Context, id uuid.UUID) (*model.Program, error) {
	var entity ProgramEntity
	err := r.Read(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	return toProgramModel(&entity), nil
}

func (r *DirectoryRepository) GetClass(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	var entity ClassEntity
	err := r.Read(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}
	return toClassModel(&entity), nil
}

// IsEnrolled reports whether the holder is currently enrolled in the class.
func (r *DirectoryRepository) IsEnrolled(ctx context.Context, classID, holderID uuid.UUID) (bool, error) {
	var count int64
	err := r.Read(ctx).
		Model(&EnrollmentEntity{}).
		Where("class_id = ? AND holder_id = ?", classID, holderID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/pkg/pg"
	"gorm.io/gorm"
)

type AttendanceRepository struct {
	*pg.DB
}

func NewAttendanceRepository(db *pg.DB) *AttendanceRepository {
	return &AttendanceRepository{
		db,
	}
}

// CreateSession inserts the (class, date) session row. The unique index
// on (class_id, date) makes concurrent starts collide; the loser gets
// ErrDuplicateSession and re-reads the winner's row.
func (r *AttendanceRepository) CreateSession(ctx context.Context, s *model.AttendanceSession) (*model.AttendanceSession, error) {
	entity := toSessionEntity(s)
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSession
		}
		return nil, err
	}
	return toSessionModel(entity), nil
}

func (r *AttendanceRepository) GetSession(ctx context.Context, id uuid.UUID) (*model.AttendanceSession, error) {
	var entity SessionEntity
	err := r.Read(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return toSessionModel(&entity), nil
}

func (r *AttendanceRepository) GetSessionForDay(ctx context.Context, classID uuid.UUID, date string) (*model.AttendanceSession, error) {
	var entity SessionEntity
	err := r.Read(ctx).
		Where("class_id = ? AND date = ?", classID, date).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return toSessionModel(&entity), nil
}

func (r *AttendanceRepository) CloseSession(ctx context.Context, id uuid.UUID, closedAt time.Time) error {
	result := r.Write(ctx).
		Model(&SessionEntity{}).
		Where("id = ? AND closed_at IS NULL", id).
		Update("closed_at", closedAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// CreateRecord inserts the presence row. The unique index on
// (session_id, holder_id) turns a duplicate scan into ErrDuplicateRecord
// instead of a second row.
func (r *AttendanceRepository) CreateRecord(ctx context.Context, rec *model.AttendanceRecord) (*model.AttendanceRecord, error) {
	entity := &RecordEntity{
		ID:        rec.ID,
		SessionID: rec.SessionID,
		HolderID:  rec.HolderID,
		Status:    string(rec.Status),
		ScannedAt: rec.ScannedAt,
		ScannedBy: rec.ScannedBy,
	}
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	if entity.ScannedAt.IsZero() {
		entity.ScannedAt = time.Now().UTC()
	}

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}
	return toRecordModel(entity), nil
}

func (r *AttendanceRepository) ListRecords(ctx context.Context, sessionID uuid.UUID) ([]*model.AttendanceRecord, error) {
	var entities []*RecordEntity
	err := r.Read(ctx).
		Where("session_id = ?", sessionID).
		Order("scanned_at asc").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toRecordModels(entities), nil
}

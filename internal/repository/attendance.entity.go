package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
)

type SessionEntity struct {
	ID        uuid.UUID  `db:"id"         gorm:"primaryKey;type:uuid;column:id"`
	ClassID   uuid.UUID  `db:"class_id"   gorm:"column:class_id;type:uuid;not null;uniqueIndex:uq_class_date"`
	Date      string     `db:"date"       gorm:"column:date;not null;uniqueIndex:uq_class_date"`
	Mode      string     `db:"mode"       gorm:"column:mode;not null"`
	CreatedBy uuid.UUID  `db:"created_by" gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time  `db:"created_at" gorm:"column:created_at;not null"`
	ClosedAt  *time.Time `db:"closed_at"  gorm:"column:closed_at"`
}

func (SessionEntity) TableName() string {
	return "attendance_sessions"
}

type RecordEntity struct {
	ID        uuid.UUID `db:"id"         gorm:"primaryKey;type:uuid;column:id"`
	SessionID uuid.UUID `db:"session_id" gorm:"column:session_id;type:uuid;not null;uniqueIndex:uq_session_holder"`
	HolderID  uuid.UUID `db:"holder_id"  gorm:"column:holder_id;type:uuid;not null;uniqueIndex:uq_session_holder"`
	Status    string    `db:"status"     gorm:"column:status;not null"`
	ScannedAt time.Time `db:"scanned_at" gorm:"column:scanned_at;not null"`
	ScannedBy uuid.UUID `db:"scanned_by" gorm:"column:scanned_by;type:uuid;not null"`
}

func (RecordEntity) TableName() string {
	return "attendance_records"
}

func toSessionEntity(m *model.AttendanceSession) *SessionEntity {
	if m == nil {
		return nil
	}
	return &SessionEntity{
		ID:        m.ID,
		ClassID:   m.ClassID,
		Date:      m.Date,
		Mode:      string(m.Mode),
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
		ClosedAt:  m.ClosedAt,
	}
}

func toSessionModel(e *SessionEntity) *model.AttendanceSession {
	if e == nil {
		return nil
	}
	return &model.AttendanceSession{
		ID:        e.ID,
		ClassID:   e.ClassID,
		Date:      e.Date,
		Mode:      model.AttendanceMode(e.Mode),
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt,
		ClosedAt:  e.ClosedAt,
	}
}

func toRecordModel(e *RecordEntity) *model.AttendanceRecord {
	if e == nil {
		return nil
	}
	return &model.AttendanceRecord{
		ID:        e.ID,
		SessionID: e.SessionID,
		HolderID:  e.HolderID,
		Status:    model.AttendanceStatus(e.Status),
		ScannedAt: e.ScannedAt,
		ScannedBy: e.ScannedBy,
	}
}

func toRecordModels(entities []*RecordEntity) []*model.AttendanceRecord {
	if entities == nil {
		return nil
	}
	models := make([]*model.AttendanceRecord, len(entities))
	for i, e := range entities {
		models[i] = toRecordModel(e)
	}
	return models
}

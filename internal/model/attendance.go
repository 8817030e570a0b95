package model

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceMode string

const (
	ModeStatic  AttendanceMode = "static"
	ModeDynamic AttendanceMode = "dynamic"
)

func (m AttendanceMode) Valid() bool {
	return m == ModeStatic || m == ModeDynamic
}

type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
)

// AttendanceSession is the scan window for one class on one calendar
// date. Lifecycle: created active, optionally closed; never reopened.
type AttendanceSession struct {
	ID        uuid.UUID      `json:"id"         db:"id"         gorm:"primaryKey;type:uuid;column:id"`
	ClassID   uuid.UUID      `json:"class_id"   db:"class_id"   gorm:"column:class_id;type:uuid;not null;uniqueIndex:uq_class_date"`
	Date      string         `json:"date"       db:"date"       gorm:"column:date;not null;uniqueIndex:uq_class_date"`
	Mode      AttendanceMode `json:"mode"       db:"mode"       gorm:"column:mode;not null"`
	CreatedBy uuid.UUID      `json:"created_by" db:"created_by" gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time      `json:"created_at" db:"created_at" gorm:"column:created_at;not null"`
	ClosedAt  *time.Time     `json:"closed_at,omitempty" db:"closed_at" gorm:"column:closed_at"`
}

func (AttendanceSession) TableName() string { return "attendance_sessions" }

func (s *AttendanceSession) Closed() bool {
	return s.ClosedAt != nil
}

// AttendanceRecord marks one holder present in one session. Absence is
// the absence of a row.
type AttendanceRecord struct {
	ID        uuid.UUID        `json:"id"         db:"id"         gorm:"primaryKey;type:uuid;column:id"`
	SessionID uuid.UUID        `json:"session_id" db:"session_id" gorm:"column:session_id;type:uuid;not null;uniqueIndex:uq_session_holder"`
	HolderID  uuid.UUID        `json:"holder_id"  db:"holder_id"  gorm:"column:holder_id;type:uuid;not null;uniqueIndex:uq_session_holder"`
	Status    AttendanceStatus `json:"status"     db:"status"     gorm:"column:status;not null"`
	ScannedAt time.Time        `json:"scanned_at" db:"scanned_at" gorm:"column:scanned_at;not null"`
	ScannedBy uuid.UUID        `json:"scanned_by" db:"scanned_by" gorm:"column:scanned_by;type:uuid;not null"`
}

func (AttendanceRecord) TableName() string { return "attendance_records" }

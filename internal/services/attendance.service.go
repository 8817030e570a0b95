package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/internal/repository"
	"github.com/osool/allowance-gateway/pkg/prom"
)

var (
	ErrForbidden       = errors.New("verifier does not own this class")
	ErrSessionClosed   = errors.New("attendance session is closed")
	ErrWrongClass      = errors.New("token was issued for a different class")
	ErrNotEnrolled     = errors.New("holder is not enrolled in this class")
	ErrAlreadyRecorded = errors.New("attendance already recorded")
	ErrInvalidMode     = errors.New("unknown attendance mode")
)

type AttendanceRepository interface {
	CreateSession(ctx context.Context, s *model.AttendanceSession) (*model.AttendanceSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*model.AttendanceSession, error)
	GetSessionForDay(ctx context.Context, classID uuid.UUID, date string) (*model.AttendanceSession, error)
	CloseSession(ctx context.Context, id uuid.UUID, closedAt time.Time) error
	CreateRecord(ctx context.Context, rec *model.AttendanceRecord) (*model.AttendanceRecord, error)
	ListRecords(ctx context.Context, sessionID uuid.UUID) ([]*model.AttendanceRecord, error)
}

type ClassDirectory interface {
	GetClass(ctx context.Context, id uuid.UUID) (*model.Class, error)
	IsEnrolled(ctx context.Context, classID, holderID uuid.UUID) (bool, error)
}

type TokenBroker interface {
	Issue(ctx context.Context, payload model.TokenPayload) (*model.IssuedToken, error)
	Redeem(ctx context.Context, tokenCtx model.TokenContext, token string) (*model.TokenPayload, error)
}

// AttendanceService runs the per-(class, date) session state machine and
// the token-gated scan flow.
type AttendanceService struct {
	attendanceRepo AttendanceRepository
	holderRepo     HolderRepository
	directory      ClassDirectory
	tokens         TokenBroker
	audit          AuditSink
}

func NewAttendanceService(
	attendanceRepo AttendanceRepository,
	holderRepo HolderRepository,
	directory ClassDirectory,
	tokens TokenBroker,
	audit AuditSink,
) *AttendanceService {
	return &AttendanceService{
		attendanceRepo: attendanceRepo,
		holderRepo:     holderRepo,
		directory:      directory,
		tokens:         tokens,
		audit:          audit,
	}
}

// StartSession opens today's scan window for the class. Starting an
// already-active session is idempotent and returns the existing row;
// starting after the day's session was closed is an error, a closed day
// never reopens.
func (s *AttendanceService) StartSession(ctx context.Context, verifierID, classID uuid.UUID, mode model.AttendanceMode) (*model.AttendanceSession, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	if err := s.verifyOwnership(ctx, verifierID, classID); err != nil {
		return nil, err
	}

	date := model.Today()
	if existing, err := s.attendanceRepo.GetSessionForDay(ctx, classID, date); err == nil {
		if existing.Closed() {
			return nil, ErrSessionClosed
		}
		return existing, nil
	} else if !errors.Is(err, repository.ErrSessionNotFound) {
		return nil, err
	}

	session := &model.AttendanceSession{
		ClassID:   classID,
		Date:      date,
		Mode:      mode,
		CreatedBy: verifierID,
	}
	created, err := s.attendanceRepo.CreateSession(ctx, session)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateSession) {
			// Lost the race to a concurrent start; the winner's row is
			// the session.
			winner, rerr := s.attendanceRepo.GetSessionForDay(ctx, classID, date)
			if rerr != nil {
				return nil, rerr
			}
			if winner.Closed() {
				return nil, ErrSessionClosed
			}
			return winner, nil
		}
		return nil, err
	}

	s.audit.Emit("session_start", map[string]interface{}{
		"session_id": created.ID.String(),
		"class_id":   classID.String(),
		"date":       date,
		"mode":       string(mode),
	})
	return created, nil
}

// CloseSession ends the scan window. Closing an already-closed session
// is a no-op.
func (s *AttendanceService) CloseSession(ctx context.Context, verifierID, sessionID uuid.UUID) error {
	session, err := s.ownedSession(ctx, verifierID, sessionID)
	if err != nil {
		return err
	}
	if session.Closed() {
		return nil
	}

	if err := s.attendanceRepo.CloseSession(ctx, sessionID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Another close landed between our read and the update.
			return nil
		}
		return err
	}

	s.audit.Emit("session_close", map[string]interface{}{
		"session_id": sessionID.String(),
		"class_id":   session.ClassID.String(),
		"date":       session.Date,
	})
	return nil
}

// Scan redeems an attendance token into a session. The token is consumed
// at the redeem step even when a later check fails; a holder whose scan
// bounced on class or enrollment needs a fresh token.
func (s *AttendanceService) Scan(ctx context.Context, verifierID, sessionID uuid.UUID, token string) (*model.AttendanceRecord, error) {
	session, err := s.ownedSession(ctx, verifierID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Closed() {
		prom.IncCounterVec(prom.SystemAttendance, prom.MetricScanOutcome, "session_closed")
		return nil, ErrSessionClosed
	}

	payload, err := s.tokens.Redeem(ctx, model.ContextAttendance, token)
	if err != nil {
		prom.IncCounterVec(prom.SystemAttendance, prom.MetricScanOutcome, "bad_token")
		return nil, err
	}

	if payload.ClassID != nil && *payload.ClassID != session.ClassID {
		prom.IncCounterVec(prom.SystemAttendance, prom.MetricScanOutcome, "wrong_class")
		return nil, ErrWrongClass
	}

	enrolled, err := s.directory.IsEnrolled(ctx, session.ClassID, payload.HolderID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		prom.IncCounterVec(prom.SystemAttendance, prom.MetricScanOutcome, "not_enrolled")
		return nil, ErrNotEnrolled
	}

	record := &model.AttendanceRecord{
		SessionID: sessionID,
		HolderID:  payload.HolderID,
		Status:    model.StatusPresent,
		ScannedAt: time.Now().UTC(),
		ScannedBy: verifierID,
	}
	created, err := s.attendanceRepo.CreateRecord(ctx, record)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateRecord) {
			prom.IncCounterVec(prom.SystemAttendance, prom.MetricScanOutcome, "duplicate")
			return nil, ErrAlreadyRecorded
		}
		return nil, err
	}

	prom.IncCounterVec(prom.SystemAttendance, prom.MetricScanOutcome, "ok")
	s.audit.Emit("attendance_scan", map[string]interface{}{
		"session_id": sessionID.String(),
		"holder_id":  payload.HolderID.String(),
		"class_id":   session.ClassID.String(),
		"date":       session.Date,
	})
	return created, nil
}

// SessionRecords returns the roster of a session for its owner.
func (s *AttendanceService) SessionRecords(ctx context.Context, verifierID, sessionID uuid.UUID) ([]*model.AttendanceRecord, error) {
	if _, err := s.ownedSession(ctx, verifierID, sessionID); err != nil {
		return nil, err
	}
	return s.attendanceRepo.ListRecords(ctx, sessionID)
}

// IssueAttendanceToken issues a single-use attendance token for an
// active holder. When classID is set, the holder must be enrolled and
// the token only redeems into that class's session.
func (s *AttendanceService) IssueAttendanceToken(ctx context.Context, holderID uuid.UUID, classID *uuid.UUID) (*model.IssuedToken, error) {
	holder, err := s.holderRepo.GetByID(ctx, holderID)
	if err != nil {
		return nil, mapHolderErr(err)
	}
	if !holder.IsActive {
		return nil, ErrHolderInactive
	}

	if classID != nil {
		enrolled, err := s.directory.IsEnrolled(ctx, *classID, holderID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, ErrNotEnrolled
		}
	}

	return s.tokens.Issue(ctx, model.TokenPayload{
		HolderID: holderID,
		Context:  model.ContextAttendance,
		ClassID:  classID,
	})
}

func (s *AttendanceService) ownedSession(ctx context.Context, verifierID, sessionID uuid.UUID) (*model.AttendanceSession, error) {
	session, err := s.attendanceRepo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.verifyOwnership(ctx, verifierID, session.ClassID); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *AttendanceService) verifyOwnership(ctx context.Context, verifierID, classID uuid.UUID) error {
	class, err := s.directory.GetClass(ctx, classID)
	if err != nil {
		if errors.Is(err, repository.ErrClassNotFound) {
			return ErrNotFound
		}
		return err
	}
	if class.TeacherID != verifierID {
		return ErrForbidden
	}
	return nil
}

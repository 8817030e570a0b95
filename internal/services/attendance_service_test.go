package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/audit"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/internal/repository"
	"github.com/osool/allowance-gateway/pkg/pg"
	"github.com/osool/allowance-gateway/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attendanceFixture struct {
	svc     *AttendanceService
	tokens  *TokenService
	db      *pg.DB
	teacher *repository.HolderEntity
	student *repository.HolderEntity
	class   *repository.ClassEntity
}

func setupAttendance(t *testing.T) *attendanceFixture {
	db := helpers.SetupTestDB(t)
	_, adapter := helpers.SetupTestRedis(t)

	program := helpers.CreateTestProgram(t, db, "100.00")
	teacher := helpers.CreateTestHolder(t, db, program.ID, model.HolderTeacher, true)
	student := helpers.CreateTestHolder(t, db, program.ID, model.HolderStudent, true)
	class := helpers.CreateTestClass(t, db, program.ID, teacher.ID)
	helpers.EnrollHolder(t, db, class.ID, student.ID)

	tokens := NewTokenService(adapter, DefaultTokenConfig())
	svc := NewAttendanceService(
		repository.NewAttendanceRepository(db),
		repository.NewHolderRepository(db),
		repository.NewDirectoryRepository(db),
		tokens,
		audit.NopSink{},
	)

	return &attendanceFixture{
		svc:     svc,
		tokens:  tokens,
		db:      db,
		teacher: teacher,
		student: student,
		class:   class,
	}
}

func TestAttendanceService_StartSession(t *testing.T) {
	f := setupAttendance(t)
	ctx := context.Background()

	t.Run("creates and is idempotent while active", func(t *testing.T) {
		first, err := f.svc.StartSession(ctx, f.teacher.ID, f.class.ID, model.ModeDynamic)
		require.NoError(t, err)
		assert.False(t, first.Closed())

		second, err := f.svc.StartSession(ctx, f.teacher.ID, f.class.ID, model.ModeDynamic)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("closed day never reopens", func(t *testing.T) {
		session, err := f.svc.StartSession(ctx, f.teacher.ID, f.class.ID, model.ModeDynamic)
		require.NoError(t, err)
		require.NoError(t, f.svc.CloseSession(ctx, f.teacher.ID, session.ID))

		_, err = f.svc.StartSession(ctx, f.teacher.ID, f.class.ID, model.ModeDynamic)
		assert.ErrorIs(t, err, ErrSessionClosed)
	})

	t.Run("only the assigned teacher may start", func(t *testing.T) {
		_, err := f.svc.StartSession(ctx, f.student.ID, f.class.ID, model.ModeDynamic)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown class", func(t *testing.T) {
		_, err := f.svc.StartSession(ctx, f.teacher.ID, uuid.New(), model.ModeDynamic)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := f.svc.StartSession(ctx, f.teacher.ID, f.class.ID, model.AttendanceMode("hybrid"))
		assert.ErrorIs(t, err, ErrInvalidMode)
	})
}

func TestAttendanceService_Scan(t *testing.T) {
	f := setupAttendance(t)
	ctx := context.Background()

	session, err := f.svc.StartSession(ctx, f.teacher.ID, f.class.ID, model.ModeDynamic)
	require.NoError(t, err)

	t.Run("happy path records presence", func(t *testing.T) {
		issued, err := f.svc.IssueAttendanceToken(ctx, f.student.ID, &f.class.ID)
		require.NoError(t, err)

		record, err := f.svc.Scan(ctx, f.teacher.ID, session.ID, issued.Token)
		require.NoError(t, err)
		assert.Equal(t, f.student.ID, record.HolderID)
		assert.Equal(t, model.StatusPresent, record.Status)
		assert.Equal(t, f.teacher.ID, record.ScannedBy)
	})

	t.Run("token is single use", func(t *testing.T) {
		issued, err := f.svc.IssueAttendanceToken(ctx, f.student.ID, &f.class.ID)
		require.NoError(t, err)

		_, err = f.svc.Scan(ctx, f.teacher.ID, session.ID, issued.Token)
		assert.ErrorIs(t, err, ErrAlreadyRecorded)

		// The failed duplicate scan consumed the token anyway.
		_, err = f.svc.Scan(ctx, f.teacher.ID, session.ID, issued.Token)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("wrong class consumes the token", func(t *testing.T) {
		otherClass := helpers.CreateTestClass(t, f.db, f.teacher.ProgramID, f.teacher.ID)
		helpers.EnrollHolder(t, f.db, otherClass.ID, f.student.ID)
		issued, err := f.svc.IssueAttendanceToken(ctx, f.student.ID, &otherClass.ID)
		require.NoError(t, err)

		_, err = f.svc.Scan(ctx, f.teacher.ID, session.ID, issued.Token)
		assert.ErrorIs(t, err, ErrWrongClass)

		_, err = f.svc.Scan(ctx, f.teacher.ID, session.ID, issued.Token)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("unenrolled holder", func(t *testing.T) {
		outsider := helpers.CreateTestHolder(t, f.db, f.teacher.ProgramID, model.HolderStudent, true)
		issued, err := f.svc.IssueAttendanceToken(ctx, outsider.ID, nil)
		require.NoError(t, err)

		_, err = f.svc.Scan(ctx, f.teacher.ID, session.ID, issued.Token)
		assert.ErrorIs(t, err, ErrNotEnrolled)
	})

	t.Run("bogus token", func(t *testing.T) {
		_, err := f.svc.Scan(ctx, f.teacher.ID, session.ID, "not-a-token")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("only the owner scans", func(t *testing.T) {
		issued, err := f.svc.IssueAttendanceToken(ctx, f.student.ID, &f.class.ID)
		require.NoError(t, err)

		_, err = f.svc.Scan(ctx, f.student.ID, session.ID, issued.Token)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("closed session rejects scans", func(t *testing.T) {
		issued, err := f.svc.IssueAttendanceToken(ctx, f.student.ID, &f.class.ID)
		require.NoError(t, err)

		require.NoError(t, f.svc.CloseSession(ctx, f.teacher.ID, session.ID))

		_, err = f.svc.Scan(ctx, f.teacher.ID, session.ID, issued.Token)
		assert.ErrorIs(t, err, ErrSessionClosed)
	})
}

func TestAttendanceService_CloseSession(t *testing.T) {
	f := setupAttendance(t)
	ctx := context.Background()

	session, err := f.svc.StartSession(ctx, f.teacher.ID, f.class.ID, model.ModeDynamic)
	require.NoError(t, err)

	t.Run("only the owner closes", func(t *testing.T) {
		err := f.svc.CloseSession(ctx, f.student.ID, session.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		require.NoError(t, f.svc.CloseSession(ctx, f.teacher.ID, session.ID))
		assert.NoError(t, f.svc.CloseSession(ctx, f.teacher.ID, session.ID))
	})

	t.Run("unknown session", func(t *testing.T) {
		err := f.svc.CloseSession(ctx, f.teacher.ID, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAttendanceService_SessionRecords(t *testing.T) {
	f := setupAttendance(t)
	ctx := context.Background()

	session, err := f.svc.StartSession(ctx, f.teacher.ID, f.class.ID, model.ModeDynamic)
	require.NoError(t, err)

	second := helpers.CreateTestHolder(t, f.db, f.teacher.ProgramID, model.HolderStudent, true)
	helpers.EnrollHolder(t, f.db, f.class.ID, second.ID)

	for _, holder := range []uuid.UUID{f.student.ID, second.ID} {
		issued, err := f.svc.IssueAttendanceToken(ctx, holder, &f.class.ID)
		require.NoError(t, err)
		_, err = f.svc.Scan(ctx, f.teacher.ID, session.ID, issued.Token)
		require.NoError(t, err)
	}

	records, err := f.svc.SessionRecords(ctx, f.teacher.ID, session.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, f.student.ID, records[0].HolderID)
	assert.Equal(t, second.ID, records[1].HolderID)

	_, err = f.svc.SessionRecords(ctx, f.student.ID, session.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAttendanceService_IssueAttendanceToken(t *testing.T) {
	f := setupAttendance(t)
	ctx := context.Background()

	t.Run("unenrolled class binding rejected", func(t *testing.T) {
		outsider := helpers.CreateTestHolder(t, f.db, f.teacher.ProgramID, model.HolderStudent, true)
		_, err := f.svc.IssueAttendanceToken(ctx, outsider.ID, &f.class.ID)
		assert.ErrorIs(t, err, ErrNotEnrolled)
	})

	t.Run("inactive holder rejected", func(t *testing.T) {
		inactive := helpers.CreateTestHolder(t, f.db, f.teacher.ProgramID, model.HolderStudent, false)
		_, err := f.svc.IssueAttendanceToken(ctx, inactive.ID, nil)
		assert.ErrorIs(t, err, ErrHolderInactive)
	})
}

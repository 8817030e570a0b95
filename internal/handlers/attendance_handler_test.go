package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAttendanceService struct {
	mock.Mock
}

func (m *MockAttendanceService) StartSession(ctx context.Context, verifierID, classID uuid.UUID, mode model.AttendanceMode) (*model.AttendanceSession, error) {
	args := m.Called(ctx, verifierID, classID, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AttendanceSession), args.Error(1)
}

func (m *MockAttendanceService) CloseSession(ctx context.Context, verifierID, sessionID uuid.UUID) error {
	args := m.Called(ctx, verifierID, sessionID)
	return args.Error(0)
}

func (m *MockAttendanceService) Scan(ctx context.Context, verifierID, sessionID uuid.UUID, token string) (*model.AttendanceRecord, error) {
	args := m.Called(ctx, verifierID, sessionID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceService) SessionRecords(ctx context.Context, verifierID, sessionID uuid.UUID) ([]*model.AttendanceRecord, error) {
	args := m.Called(ctx, verifierID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AttendanceRecord), args.Error(1)
}

func TestAttendanceHandler_StartSession(t *testing.T) {
	t.Run("successful start", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		verifierID := uuid.New()
		classID := uuid.New()
		expected := &model.AttendanceSession{
			ID:      uuid.New(),
			ClassID: classID,
			Date:    model.Today(),
			Mode:    model.ModeDynamic,
		}
		svc.On("StartSession", mock.Anything, verifierID, classID, model.ModeDynamic).Return(expected, nil)

		bodyBytes, _ := json.Marshal(startSessionRequest{
			VerifierID: verifierID.String(),
			ClassID:    classID.String(),
			Mode:       "dynamic",
		})
		ctx := setupTestContext("POST", "/attendance/sessions", bodyBytes)
		handler.StartSession(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var response model.AttendanceSession
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, expected.ID, response.ID)

		svc.AssertExpectations(t)
	})

	t.Run("mode defaults to dynamic", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		verifierID := uuid.New()
		classID := uuid.New()
		svc.On("StartSession", mock.Anything, verifierID, classID, model.ModeDynamic).
			Return(&model.AttendanceSession{ClassID: classID}, nil)

		bodyBytes, _ := json.Marshal(startSessionRequest{
			VerifierID: verifierID.String(),
			ClassID:    classID.String(),
		})
		ctx := setupTestContext("POST", "/attendance/sessions", bodyBytes)
		handler.StartSession(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("foreign class maps to 403", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		svc.On("StartSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, services.ErrForbidden)

		bodyBytes, _ := json.Marshal(startSessionRequest{
			VerifierID: uuid.New().String(),
			ClassID:    uuid.New().String(),
		})
		ctx := setupTestContext("POST", "/attendance/sessions", bodyBytes)
		handler.StartSession(ctx)

		assert.Equal(t, 403, ctx.Response.StatusCode())
	})

	t.Run("closed day maps to 409", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		svc.On("StartSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, services.ErrSessionClosed)

		bodyBytes, _ := json.Marshal(startSessionRequest{
			VerifierID: uuid.New().String(),
			ClassID:    uuid.New().String(),
		})
		ctx := setupTestContext("POST", "/attendance/sessions", bodyBytes)
		handler.StartSession(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
	})

	t.Run("invalid class_id", func(t *testing.T) {
		handler := NewAttendanceHandler(new(MockAttendanceService))

		bodyBytes, _ := json.Marshal(startSessionRequest{
			VerifierID: uuid.New().String(),
			ClassID:    "nope",
		})
		ctx := setupTestContext("POST", "/attendance/sessions", bodyBytes)
		handler.StartSession(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestAttendanceHandler_CloseSession(t *testing.T) {
	t.Run("successful close", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		verifierID := uuid.New()
		sessionID := uuid.New()
		svc.On("CloseSession", mock.Anything, verifierID, sessionID).Return(nil)

		bodyBytes, _ := json.Marshal(closeSessionRequest{
			VerifierID: verifierID.String(),
			SessionID:  sessionID.String(),
		})
		ctx := setupTestContext("POST", "/attendance/sessions/close", bodyBytes)
		handler.CloseSession(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response map[string]string
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, "closed", response["status"])

		svc.AssertExpectations(t)
	})

	t.Run("unknown session maps to 404", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		svc.On("CloseSession", mock.Anything, mock.Anything, mock.Anything).
			Return(services.ErrNotFound)

		bodyBytes, _ := json.Marshal(closeSessionRequest{
			VerifierID: uuid.New().String(),
			SessionID:  uuid.New().String(),
		})
		ctx := setupTestContext("POST", "/attendance/sessions/close", bodyBytes)
		handler.CloseSession(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})
}

func TestAttendanceHandler_Scan(t *testing.T) {
	t.Run("successful scan", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		verifierID := uuid.New()
		sessionID := uuid.New()
		expected := &model.AttendanceRecord{
			ID:        uuid.New(),
			SessionID: sessionID,
			HolderID:  uuid.New(),
			Status:    model.StatusPresent,
		}
		svc.On("Scan", mock.Anything, verifierID, sessionID, "tok123").Return(expected, nil)

		bodyBytes, _ := json.Marshal(scanRequest{
			VerifierID: verifierID.String(),
			SessionID:  sessionID.String(),
			Token:      "tok123",
		})
		ctx := setupTestContext("POST", "/attendance/scan", bodyBytes)
		handler.Scan(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var response model.AttendanceRecord
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, expected.ID, response.ID)
		assert.Equal(t, model.StatusPresent, response.Status)

		svc.AssertExpectations(t)
	})

	t.Run("missing token", func(t *testing.T) {
		handler := NewAttendanceHandler(new(MockAttendanceService))

		bodyBytes, _ := json.Marshal(scanRequest{
			VerifierID: uuid.New().String(),
			SessionID:  uuid.New().String(),
		})
		ctx := setupTestContext("POST", "/attendance/scan", bodyBytes)
		handler.Scan(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("dead token maps to 404 invalid code", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		svc.On("Scan", mock.Anything, mock.Anything, mock.Anything, "stale").
			Return(nil, services.ErrTokenNotFound)

		bodyBytes, _ := json.Marshal(scanRequest{
			VerifierID: uuid.New().String(),
			SessionID:  uuid.New().String(),
			Token:      "stale",
		})
		ctx := setupTestContext("POST", "/attendance/scan", bodyBytes)
		handler.Scan(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())

		var response map[string]string
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, "invalid code", response["error"])
	})

	t.Run("wrong class is indistinguishable from a dead token", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		svc.On("Scan", mock.Anything, mock.Anything, mock.Anything, "other").
			Return(nil, services.ErrWrongClass)

		bodyBytes, _ := json.Marshal(scanRequest{
			VerifierID: uuid.New().String(),
			SessionID:  uuid.New().String(),
			Token:      "other",
		})
		ctx := setupTestContext("POST", "/attendance/scan", bodyBytes)
		handler.Scan(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())

		var response map[string]string
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, "invalid code", response["error"])
	})

	t.Run("duplicate scan maps to 409", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		svc.On("Scan", mock.Anything, mock.Anything, mock.Anything, "again").
			Return(nil, services.ErrAlreadyRecorded)

		bodyBytes, _ := json.Marshal(scanRequest{
			VerifierID: uuid.New().String(),
			SessionID:  uuid.New().String(),
			Token:      "again",
		})
		ctx := setupTestContext("POST", "/attendance/scan", bodyBytes)
		handler.Scan(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
	})

	t.Run("not enrolled maps to 422", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		svc.On("Scan", mock.Anything, mock.Anything, mock.Anything, "outsider").
			Return(nil, services.ErrNotEnrolled)

		bodyBytes, _ := json.Marshal(scanRequest{
			VerifierID: uuid.New().String(),
			SessionID:  uuid.New().String(),
			Token:      "outsider",
		})
		ctx := setupTestContext("POST", "/attendance/scan", bodyBytes)
		handler.Scan(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
	})
}

func TestAttendanceHandler_SessionRecords(t *testing.T) {
	t.Run("successful list", func(t *testing.T) {
		svc := new(MockAttendanceService)
		handler := NewAttendanceHandler(svc)

		verifierID := uuid.New()
		sessionID := uuid.New()
		items := []*model.AttendanceRecord{
			{ID: uuid.New(), SessionID: sessionID, Status: model.StatusPresent},
			{ID: uuid.New(), SessionID: sessionID, Status: model.StatusPresent},
		}
		svc.On("SessionRecords", mock.Anything, verifierID, sessionID).Return(items, nil)

		ctx := setupTestContext("GET", "/attendance/sessions/records?verifier_id="+verifierID.String()+"&session_id="+sessionID.String(), nil)
		handler.SessionRecords(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response recordsResponse
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, 2, response.Total)

		svc.AssertExpectations(t)
	})

	t.Run("missing query params", func(t *testing.T) {
		handler := NewAttendanceHandler(new(MockAttendanceService))

		ctx := setupTestContext("GET", "/attendance/sessions/records", nil)
		handler.SessionRecords(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

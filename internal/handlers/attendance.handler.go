package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	xhttp "github.com/osool/allowance-gateway/pkg/http"
)

type AttendanceService interface {
	StartSession(ctx context.Context, verifierID, classID uuid.UUID, mode model.AttendanceMode) (*model.AttendanceSession, error)
	CloseSession(ctx context.Context, verifierID, sessionID uuid.UUID) error
	Scan(ctx context.Context, verifierID, sessionID uuid.UUID, token string) (*model.AttendanceRecord, error)
	SessionRecords(ctx context.Context, verifierID, sessionID uuid.UUID) ([]*model.AttendanceRecord, error)
}

type AttendanceHandler struct {
	svc AttendanceService
}

func RegisterAttendanceRoutes(e *router.Group, h *AttendanceHandler) {
	e.POST("/attendance/sessions", h.StartSession)
	e.POST("/attendance/sessions/close", h.CloseSession)
	e.GET("/attendance/sessions/records", h.SessionRecords)
	e.POST("/attendance/scan", h.Scan)
}

func NewAttendanceHandler(svc AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{
		svc: svc,
	}
}

type startSessionRequest struct {
	VerifierID string `json:"verifier_id"`
	ClassID    string `json:"class_id"`
	Mode       string `json:"mode"`
}

type closeSessionRequest struct {
	VerifierID string `json:"verifier_id"`
	SessionID  string `json:"session_id"`
}

type scanRequest struct {
	VerifierID string `json:"verifier_id"`
	SessionID  string `json:"session_id"`
	Token      string `json:"token"`
}

type recordsResponse struct {
	Items []*model.AttendanceRecord `json:"items"`
	Total int                       `json:"total"`
}

func (h *AttendanceHandler) StartSession(ctx *xhttp.RequestCtx) {
	var req startSessionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	verifierID, err := uuid.Parse(req.VerifierID)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid verifier_id")
		return
	}
	classID, err := uuid.Parse(req.ClassID)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid class_id")
		return
	}

	mode := model.AttendanceMode(req.Mode)
	if req.Mode == "" {
		mode = model.ModeDynamic
	}

	session, err := h.svc.StartSession(ctx, verifierID, classID, mode)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, session)
}

func (h *AttendanceHandler) CloseSession(ctx *xhttp.RequestCtx) {
	var req closeSessionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	verifierID, err := uuid.Parse(req.VerifierID)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid verifier_id")
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid session_id")
		return
	}

	if err := h.svc.CloseSession(ctx, verifierID, sessionID); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]string{"status": "closed"})
}

func (h *AttendanceHandler) Scan(ctx *xhttp.RequestCtx) {
	var req scanRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	verifierID, err := uuid.Parse(req.VerifierID)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid verifier_id")
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid session_id")
		return
	}
	if req.Token == "" {
		writeError(ctx, xhttp.StatusBadRequest, "token is required")
		return
	}

	record, err := h.svc.Scan(ctx, verifierID, sessionID, req.Token)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, record)
}

func (h *AttendanceHandler) SessionRecords(ctx *xhttp.RequestCtx) {
	verifierID, err := uuid.Parse(query(ctx, "verifier_id"))
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid verifier_id")
		return
	}
	sessionID, err := uuid.Parse(query(ctx, "session_id"))
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid session_id")
		return
	}

	records, err := h.svc.SessionRecords(ctx, verifierID, sessionID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, recordsResponse{Items: records, Total: len(records)})
}

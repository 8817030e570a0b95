package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	xhttp "github.com/osool/allowance-gateway/pkg/http"
)

type AttendanceTokenIssuer interface {
	IssueAttendanceToken(ctx context.Context, holderID uuid.UUID, classID *uuid.UUID) (*model.IssuedToken, error)
}

type SpendTokenIssuer interface {
	IssueSpendToken(ctx context.Context, holderID uuid.UUID) (*model.IssuedToken, error)
}

type TokenHandler struct {
	attendance AttendanceTokenIssuer
	pos        SpendTokenIssuer
}

func RegisterTokenRoutes(e *router.Group, h *TokenHandler) {
	e.POST("/tokens/attendance", h.IssueAttendanceToken)
	e.POST("/tokens/spend", h.IssueSpendToken)
}

func NewTokenHandler(attendance AttendanceTokenIssuer, pos SpendTokenIssuer) *TokenHandler {
	return &TokenHandler{
		attendance: attendance,
		pos:        pos,
	}
}

type issueTokenRequest struct {
	HolderID string  `json:"holder_id"`
	ClassID  *string `json:"class_id,omitempty"`
}

func (h *TokenHandler) IssueAttendanceToken(ctx *xhttp.RequestCtx) {
	var req issueTokenRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	holderID, err := uuid.Parse(req.HolderID)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid holder_id")
		return
	}

	var classID *uuid.UUID
	if req.ClassID != nil && *req.ClassID != "" {
		id, err := uuid.Parse(*req.ClassID)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "invalid class_id")
			return
		}
		classID = &id
	}

	issued, err := h.attendance.IssueAttendanceToken(ctx, holderID, classID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, issued)
}

func (h *TokenHandler) IssueSpendToken(ctx *xhttp.RequestCtx) {
	var req issueTokenRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	holderID, err := uuid.Parse(req.HolderID)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid holder_id")
		return
	}

	issued, err := h.pos.IssueSpendToken(ctx, holderID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, issued)
}

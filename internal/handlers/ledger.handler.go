package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/internal/services"
	xhttp "github.com/osool/allowance-gateway/pkg/http"
	"github.com/shopspring/decimal"
)

type LedgerService interface {
	ResetAllowance(ctx context.Context, holderID uuid.UUID, base *decimal.Decimal) (*model.DailyAllowance, error)
	ResetAllAllowances(ctx context.Context, base *decimal.Decimal) (int, error)
	BumpAllowance(ctx context.Context, holderID uuid.UUID, bonus decimal.Decimal) (*model.DailyAllowance, error)
	GetBalance(ctx context.Context, holderID uuid.UUID, date string) (*model.Balance, error)
	Charge(ctx context.Context, req services.ChargeRequest) (*model.Transaction, error)
	Transactions(ctx context.Context, holderID uuid.UUID, date string) ([]*model.Transaction, error)
}

type GlanceService interface {
	Glance(ctx context.Context, token string) (*services.GlanceResult, error)
}

type LedgerHandler struct {
	svc    LedgerService
	glance GlanceService
}

func RegisterLedgerRoutes(e *router.Group, h *LedgerHandler) {
	e.POST("/ledger/reset", h.Reset)
	e.POST("/ledger/bump", h.Bump)
	e.GET("/ledger/balance", h.Balance)
	e.GET("/ledger/glance", h.Glance)
	e.POST("/ledger/charge", h.Charge)
	e.GET("/ledger/transactions", h.Transactions)
}

func NewLedgerHandler(svc LedgerService, glance GlanceService) *LedgerHandler {
	return &LedgerHandler{
		svc:    svc,
		glance: glance,
	}
}

type resetRequest struct {
	HolderID string  `json:"holder_id,omitempty"`
	All      bool    `json:"all,omitempty"`
	Base     *string `json:"base,omitempty"`
}

type bumpRequest struct {
	HolderID string `json:"holder_id"`
	Bonus    string `json:"bonus"`
}

type chargeRequest struct {
	HolderID string  `json:"holder_id"`
	Amount   string  `json:"amount"`
	Actor    string  `json:"actor"`
	Location *string `json:"location,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type resetAllResponse struct {
	Reset int `json:"reset"`
}

type transactionsResponse struct {
	Items []*model.Transaction `json:"items"`
	Total int                  `json:"total"`
}

func (h *LedgerHandler) Reset(ctx *xhttp.RequestCtx) {
	var req resetRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	base, ok := parseOptionalAmount(ctx, req.Base, "base")
	if !ok {
		return
	}

	if req.All {
		count, err := h.svc.ResetAllAllowances(ctx, base)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		writeJSON(ctx, xhttp.StatusOK, resetAllResponse{Reset: count})
		return
	}

	holderID, err := uuid.Parse(req.HolderID)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid holder_id")
		return
	}

	allowance, err := h.svc.ResetAllowance(ctx, holderID, base)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, allowance)
}

func (h *LedgerHandler) Bump(ctx *xhttp.RequestCtx) {
	var req bumpRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	holderID, err := uuid.Parse(req.HolderID)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid holder_id")
		return
	}
	bonus, err := decimal.NewFromString(req.Bonus)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid bonus amount")
		return
	}

	allowance, err := h.svc.BumpAllowance(ctx, holderID, bonus)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, allowance)
}

func (h *LedgerHandler) Balance(ctx *xhttp.RequestCtx) {
	holderID, err := uuid.Parse(query(ctx, "holder_id"))
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid holder_id")
		return
	}

	balance, err := h.svc.GetBalance(ctx, holderID, query(ctx, "date"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, balance)
}

func (h *LedgerHandler) Glance(ctx *xhttp.RequestCtx) {
	token := query(ctx, "token")
	if token == "" {
		writeError(ctx, xhttp.StatusBadRequest, "token is required")
		return
	}

	result, err := h.glance.Glance(ctx, token)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, result)
}

func (h *LedgerHandler) Charge(ctx *xhttp.RequestCtx) {
	var req chargeRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	holderID, err := uuid.Parse(req.HolderID)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid holder_id")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid amount")
		return
	}
	if req.Actor == "" {
		writeError(ctx, xhttp.StatusBadRequest, "actor is required")
		return
	}

	txn, err := h.svc.Charge(ctx, services.ChargeRequest{
		HolderID: holderID,
		Amount:   amount,
		Actor:    req.Actor,
		Location: req.Location,
		Notes:    req.Notes,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, txn)
}

func (h *LedgerHandler) Transactions(ctx *xhttp.RequestCtx) {
	holderID, err := uuid.Parse(query(ctx, "holder_id"))
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid holder_id")
		return
	}

	items, err := h.svc.Transactions(ctx, holderID, query(ctx, "date"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, transactionsResponse{Items: items, Total: len(items)})
}

func parseOptionalAmount(ctx *xhttp.RequestCtx, raw *string, field string) (*decimal.Decimal, bool) {
	if raw == nil || *raw == "" {
		return nil, true
	}
	amount, err := decimal.NewFromString(*raw)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid "+field+" amount")
		return nil, false
	}
	return &amount, true
}

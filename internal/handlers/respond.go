package handlers

import (
	"encoding/json"
	"errors"

	"github.com/osool/allowance-gateway/internal/services"
	xhttp "github.com/osool/allowance-gateway/pkg/http"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

// writeServiceError maps service error kinds onto HTTP statuses. Only
// the kind and a safe message leave the process; wrapped store detail
// never crosses this boundary.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidMode),
		errors.Is(err, services.ErrInvalidContext):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrForbidden):
		writeError(ctx, xhttp.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrTokenNotFound),
		errors.Is(err, services.ErrWrongClass):
		// Expired, consumed and wrong-class tokens are all "invalid
		// code"; the response must not reveal which.
		writeError(ctx, xhttp.StatusNotFound, "invalid code")
	case errors.Is(err, services.ErrNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrAlreadyRecorded),
		errors.Is(err, services.ErrSessionClosed):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrHolderInactive),
		errors.Is(err, services.ErrNotEnrolled),
		errors.Is(err, services.ErrNoAllowance):
		writeError(ctx, xhttp.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrTokenStoreWrite),
		errors.Is(err, services.ErrStoreUnavailable):
		writeError(ctx, xhttp.StatusServiceUnavailable, "store unavailable")
	default:
		writeError(ctx, xhttp.StatusInternalServerError, "internal error")
	}
}

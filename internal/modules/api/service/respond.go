package service

import (
	"io"
	"net/http"

	"exec_bot/internal/models"
	"exec_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const maxBody = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("[API] encode response: %v", err)
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondError(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	status := statusOf(kind)
	if status >= http.StatusInternalServerError {
		logger.Warn("[API] %v", err)
	}
	respondJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}

// statusOf: validation 400, not found 404, duplicate 409, rate limit 429,
// остальные ошибки биржи 502.
func statusOf(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindDuplicate:
		return http.StatusConflict
	case models.KindRateLimit:
		return http.StatusTooManyRequests
	case models.KindClockDrift, models.KindTransient, models.KindRejection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return models.WrapKind(models.KindValidation, err, "read body")
	}
	if len(body) == 0 {
		return models.NewError(models.KindValidation, "empty body")
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return models.WrapKind(models.KindValidation, errors.WithStack(err), "bad json")
	}
	return nil
}

package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/niksmo/storefront/internal/core/domain"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOutOfStock), errors.Is(err, domain.ErrCanceled),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidProduct):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDataSource):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	log := slog.With("op", op, "status", status)

	msg := http.StatusText(status)
	if status < http.StatusInternalServerError {
		msg = err.Error()
		log.Warn("request rejected", "err", err)
	} else {
		log.Error("request failed", "err", err)
	}
	writeJSON(w, op, status, errorResponse{msg})
}

func writeJSON(w http.ResponseWriter, op string, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body", "op", op, "err", err)
	}
}

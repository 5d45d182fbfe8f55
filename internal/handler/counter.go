package handler

import (
	"context"
	"log/slog"
	"net/http"

	"dreamclerk/internal/domain"
)

type CounterReconciler interface {
	Reconcile(ctx context.Context) (*domain.ReconcileResult, error)
	Current(ctx context.Context) (*domain.CounterStat, error)
}

type CounterHandler struct {
	counter CounterReconciler
	logger  *slog.Logger
}

func NewCounterHandler(counter CounterReconciler, logger *slog.Logger) *CounterHandler {
	return &CounterHandler{counter: counter, logger: logger}
}

func (h *CounterHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	res, err := h.counter.Reconcile(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CounterHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	stat, err := h.counter.Current(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      stat.Name,
		"count":     stat.Count,
		"updatedAt": stat.UpdatedAt,
	})
}

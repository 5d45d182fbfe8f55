package handler

import (
	"context"
	"log/slog"
	"net/http"

	"dreamclerk/internal/domain"
)

// MigrateFunc applies pending schema migrations and returns how many ran.
type MigrateFunc func(ctx context.Context) (int, error)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type AdminHandler struct {
	migrate     MigrateFunc
	counter     CounterReconciler
	db          Pinger
	adminSecret string
	logger      *slog.Logger
}

func NewAdminHandler(migrate MigrateFunc, counter CounterReconciler, db Pinger, adminSecret string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		migrate:     migrate,
		counter:     counter,
		db:          db,
		adminSecret: adminSecret,
		logger:      logger,
	}
}

type setupResponse struct {
	Success           bool                   `json:"success"`
	MigrationsApplied int                    `json:"migrationsApplied"`
	Counter           domain.ReconcileResult `json:"counter"`
}

// HandleSetup creates the schema and seeds the user counter.
func (h *AdminHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, h.logger, "admin_setup", r.URL.Query().Get("secret"), h.adminSecret) {
		return
	}

	applied, err := h.migrate(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.counter.Reconcile(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("database setup completed", "migrations_applied", applied, "counter", res.NewCount)

	writeJSON(w, http.StatusOK, setupResponse{
		Success:           true,
		MigrationsApplied: applied,
		Counter:           *res,
	})
}

func (h *AdminHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

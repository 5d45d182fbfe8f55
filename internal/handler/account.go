package handler

import (
	"context"
	"log/slog"
	"net/http"

	"dreamclerk/internal/domain"
	"dreamclerk/internal/middleware"
	"dreamclerk/internal/service"
)

type Registrar interface {
	Register(ctx context.Context, req service.RegisterRequest) (*domain.SignupResult, error)
	AtomicRegister(ctx context.Context, req service.RegisterRequest) (*domain.SignupResult, error)
	CreateAdmin(ctx context.Context, req service.CreateAdminRequest) (*domain.SignupResult, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, req service.UpdateProfileRequest) (*domain.UserProfile, error)
	Stats(ctx context.Context) (*domain.RegistrationStats, error)
}

type AccountHandler struct {
	accounts Registrar
	logger   *slog.Logger
}

func NewAccountHandler(accounts Registrar, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

type stepView struct {
	Step domain.SignupStep `json:"step"`
	OK   bool              `json:"ok"`
}

type signupResponse struct {
	Success  bool                `json:"success"`
	User     *domain.UserProfile `json:"user"`
	Steps    []stepView          `json:"steps"`
	Degraded bool                `json:"degraded"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func newSignupResponse(res *domain.SignupResult) signupResponse {
	steps := make([]stepView, 0, len(res.Steps))
	for _, st := range res.Steps {
		steps = append(steps, stepView{Step: st.Step, OK: st.OK()})
	}
	return signupResponse{
		Success:  true,
		User:     res.Profile,
		Steps:    steps,
		Degraded: res.Degraded,
	}
}

func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSignupResponse(res))
}

func (h *AccountHandler) HandleAtomicRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.AtomicRegister(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSignupResponse(res))
}

// HandleCreateAdmin expects the admin initialisation secret in the body.
func (h *AccountHandler) HandleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req service.CreateAdminRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeUnauthorized(w)
		return
	}

	res, err := h.accounts.CreateAdmin(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSignupResponse(res))
}

func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AccountHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	profile, err := h.accounts.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AccountHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req service.UpdateProfileRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	profile, err := h.accounts.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleStats also brings the user counter in line with the registrations.
func (h *AccountHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.accounts.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

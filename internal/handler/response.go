package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"dreamclerk/internal/apperror"
	"dreamclerk/internal/auth"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string                `json:"error"`
	Message string                `json:"message"`
	Fields  []apperror.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError maps an error to a status code. Configuration problems are
// reported exactly like a failed secret check.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: appErr.Message,
			Fields:  appErr.Fields,
		})
	case errors.Is(err, apperror.ErrConfiguration):
		logger.Warn("request denied", "reason", auth.ReasonNotConfigured, "error", err)
		writeUnauthorized(w)
	case errors.Is(err, apperror.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: appErr.Message,
		})
	case errors.Is(err, apperror.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: appErr.Message,
		})
	case errors.Is(err, apperror.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: appErr.Message,
		})
	case errors.Is(err, apperror.ErrGeneration):
		logger.Error("generation failed", "error", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "generation_error",
			Message: appErr.Message,
		})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: "unauthorized",
	})
}

// decodeJSON reads a JSON body into dst. An empty body is accepted when
// allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	default:
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
}

// authorize runs the shared-secret check for a privileged endpoint and
// writes the 401 itself on denial. The reason only reaches the log.
func authorize(w http.ResponseWriter, logger *slog.Logger, endpoint, provided, configured string) bool {
	res := auth.CheckSecret(provided, configured)
	if !res.Allowed {
		logger.Warn("privileged request denied", "endpoint", endpoint, "reason", res.Reason)
		writeUnauthorized(w)
		return false
	}
	return true
}

// secretFromRequest reads ?secret= and falls back to a bearer token.
func secretFromRequest(r *http.Request) string {
	if s := r.URL.Query().Get("secret"); s != "" {
		return s
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

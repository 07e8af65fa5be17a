package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"questboard/internal/auth"
	"questboard/internal/repository"
	"questboard/internal/service"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

// writeServiceError maps a service failure onto a status and error code.
func writeServiceError(w http.ResponseWriter, err error) {
	var mismatch *repository.SchemaMismatchError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, service.ErrNotSignedIn):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, "ALREADY_EXISTS", "Account already exists")
	case errors.Is(err, repository.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "ALREADY_COMPLETED", "Quest already completed")
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.As(err, &mismatch):
		writeError(w, http.StatusInternalServerError, "SCHEMA_MISMATCH", err.Error())
	default:
		log.Printf("api error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid payload")
		return false
	}
	return true
}

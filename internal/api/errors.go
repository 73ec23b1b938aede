package api

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

// errorResponse — единый формат тела ошибки API.
type errorResponse struct {
	Error string `json:"error"`
}

// statusForError переводит доменную ошибку в HTTP-статус по её виду:
// not found → 404, validation → 400, forbidden → 403, conflict → 409,
// всё остальное → 500.
func statusForError(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsForbidden(err):
		return http.StatusForbidden
	case domain.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *log.Entry, err error) {
	status := statusForError(err)
	body := errorResponse{Error: err.Error()}
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
		// Внутренние детали наружу не отдаём.
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Package handlers implements the REST request handlers. They are a
// thin veneer: decode, validate, call the service, map the error.
package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "closedesk/pkg/errors"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps an application error onto the wire. Unclassified
// errors surface as 500 without leaking internals.
func respondError(w http.ResponseWriter, err error) {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		respondJSON(w, appErr.HTTPStatus, map[string]interface{}{
			"error":   true,
			"type":    appErr.Type,
			"message": appErr.Message,
			"details": appErr.Details,
		})
		return
	}
	respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"error":   true,
		"type":    apperrors.ErrorTypeInternal,
		"message": "internal error",
	})
}

func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   true,
		"type":    apperrors.ErrorTypeValidation,
		"message": message,
	})
}

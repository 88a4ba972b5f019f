// internal/handler/response.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError maps the error taxonomy onto HTTP status codes.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusFor(err), map[string]string{"error": err.Error()})
}

func StatusFor(err error) int {
	var (
		validation *appErrors.ValidationError
		notFound   *appErrors.ListNotFoundError
		tpl        *appErrors.TemplateError
		setup      *appErrors.TransportSetupError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &tpl):
		return http.StatusUnprocessableEntity
	case errors.As(err, &setup):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads a request body into v, reporting bad input as a
// validation error.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return appErrors.NewValidation("body", err.Error())
	}
	return nil
}

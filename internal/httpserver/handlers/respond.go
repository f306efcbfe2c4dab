package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"vivero/internal/auth"
	"vivero/internal/permissions"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// respondError is the single boundary translator: domain sentinels map to
// HTTP statuses, anything else is a logged 500 with a generic body.
func respondError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	var status int
	msg := err.Error()
	switch {
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, permissions.ErrInvalidTable),
		errors.Is(err, permissions.ErrInvalidScope):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenMalformed):
		status = http.StatusUnauthorized
		msg = auth.ErrUnauthorized.Error()
	case errors.Is(err, auth.ErrNotFound),
		errors.Is(err, permissions.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrConflict):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		msg = "internal server error"
		lg.Errorw("request failed", "error", err)
	}
	respondJSON(w, status, map[string]string{"message": msg})
}

// decodeValid decodes a JSON body into dst and runs struct validation.
func decodeValid(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return auth.ErrInvalidInput
	}
	if err := validate.Struct(dst); err != nil {
		return auth.ErrInvalidInput
	}
	return nil
}

func mustIdentity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"kitchen-orders/internal/middleware"
	"kitchen-orders/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// MessageResponse acknowledges a mutation that has no other result.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError maps err onto a status code by its domain kind. Server-side
// failures never expose their cause; the client gets the correlation id instead.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		de = model.InternalError("Internal server error", err)
	}

	status := statusFor(de.Kind)
	resp := model.ErrorResponse{Error: de.Code, Message: de.Message}
	correlationID := middleware.GetRequestID(r.Context())

	switch de.Kind {
	case model.KindTransient:
		resp.Message = "Service temporarily unavailable, please retry"
		resp.CorrelationID = correlationID
	case model.KindInternal:
		resp.Message = "An unexpected error occurred"
		resp.CorrelationID = correlationID
	}

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("code", de.Code).
		Int("status", status).
		Str("correlation_id", correlationID).
		Msg("handler error")

	writeJSON(w, status, resp)
}

func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	case model.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.ValidationError(model.ErrCodeInvalidJSON, "Invalid request body")
	}
	return nil
}

// pathID parses a positive integer route parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.ValidationError(model.ErrCodeInvalidID, "Invalid %s %q", name, raw)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.ValidationError(model.ErrCodeValidation, "Invalid %s parameter %q", name, raw)
	}
	return value, nil
}

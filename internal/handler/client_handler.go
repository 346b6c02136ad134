package handler

import (
	"net/http"

	"kitchen-orders/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ClientHandler serves returning-customer lookups.
type ClientHandler struct {
	service service.ClientService
	logger  zerolog.Logger
}

func NewClientHandler(service service.ClientService, logger zerolog.Logger) *ClientHandler {
	return &ClientHandler{
		service: service,
		logger:  logger.With().Str("handler", "client").Logger(),
	}
}

// GetByPhone handles GET /api/clients/{phone} requests.
func (h *ClientHandler) GetByPhone(w http.ResponseWriter, r *http.Request) {
	client, err := h.service.GetByPhone(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

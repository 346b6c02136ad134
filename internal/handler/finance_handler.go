package handler

import (
	"net/http"
	"time"

	"kitchen-orders/internal/service"

	"github.com/rs/zerolog"
)

// FinanceHandler serves payment totals.
type FinanceHandler struct {
	service service.FinanceService
	now     func() time.Time
	logger  zerolog.Logger
}

func NewFinanceHandler(service service.FinanceService, logger zerolog.Logger) *FinanceHandler {
	return &FinanceHandler{
		service: service,
		now:     time.Now,
		logger:  logger.With().Str("handler", "finance").Logger(),
	}
}

// Today handles GET /api/finances/today?method= requests.
func (h *FinanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.Today(r.Context(), r.URL.Query().Get("method"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, total)
}

// Monthly handles GET /api/finances/monthly?year=&month=&method= requests.
// Year and month default to the current ones.
func (h *FinanceHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	year, err := queryInt(r, "year", now.Year())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	total, err := h.service.Monthly(r.Context(), year, time.Month(month), r.URL.Query().Get("method"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, total)
}

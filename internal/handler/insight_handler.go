// internal/handler/insight_handler.go
package handler

import (
	"net/http"

	"github.com/unclebandit/leadflow-backend/internal/integration"
	"github.com/unclebandit/leadflow-backend/internal/repository"
	"github.com/unclebandit/leadflow-backend/internal/service"
)

// InsightHandler serves the read-only views: delivery log, analytics,
// appointments and sentiment.
type InsightHandler struct {
	Repo     repository.DeliveryLogRepositoryInterface
	Bookings integration.BookingSource
	Analyzer *service.SentimentService
}

// ListDeliveries returns the delivery log, newest first.
func (h *InsightHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	records, err := h.Repo.QueryAll(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"data":  records,
		"count": len(records),
	})
}

func (h *InsightHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Repo.CountByStatus(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	timeline, err := h.Repo.Timeline(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	total := 0
	for _, n := range stats {
		total += n
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"total":     total,
		"by_status": stats,
		"timeline":  timeline,
	})
}

func (h *InsightHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	bookings := h.Bookings.FetchBookings(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{"data": bookings})
}

func (h *InsightHandler) Sentiment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.Analyzer.Analyze(body.Text)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

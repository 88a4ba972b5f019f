package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/handler"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/service"
)

type MockDeliveryLogRepo struct {
	records []model.DeliveryRecord
	err     error
}

func (m *MockDeliveryLogRepo) Append(context.Context, *model.DeliveryRecord) error { return nil }

func (m *MockDeliveryLogRepo) QueryAll(context.Context) ([]model.DeliveryRecord, error) {
	return m.records, m.err
}

func (m *MockDeliveryLogRepo) CountByStatus(context.Context) (map[string]int, error) {
	return map[string]int{"sent": 2, "failed": 1}, m.err
}

func (m *MockDeliveryLogRepo) Timeline(context.Context) ([]model.DailyCount, error) {
	return []model.DailyCount{{Day: "2025-03-01", Count: 3}}, m.err
}

type MockBookings struct{}

func (MockBookings) FetchBookings(context.Context) []model.Booking {
	return []model.Booking{{EventName: "Intro", StartTime: "2025-03-01T10:00:00Z", Status: "active"}}
}

func newInsightHandler(repo *MockDeliveryLogRepo) *handler.InsightHandler {
	return &handler.InsightHandler{Repo: repo, Bookings: MockBookings{}, Analyzer: service.NewSentimentService()}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, handler.StatusFor(appErrors.NewValidation("x", "y")))
	assert.Equal(t, http.StatusNotFound, handler.StatusFor(fmt.Errorf("wrap: %w", appErrors.NewListNotFound("id"))))
	assert.Equal(t, http.StatusUnprocessableEntity, handler.StatusFor(appErrors.NewTemplate(errors.New("x"))))
	assert.Equal(t, http.StatusBadGateway, handler.StatusFor(appErrors.NewTransportSetup("a", errors.New("x"))))
	assert.Equal(t, http.StatusInternalServerError, handler.StatusFor(errors.New("boom")))
}

func TestListDeliveries(t *testing.T) {
	t.Parallel()

	h := newInsightHandler(&MockDeliveryLogRepo{records: []model.DeliveryRecord{
		{ID: 2, Recipient: "b@x.com", Status: "sent"},
		{ID: 1, Recipient: "a@x.com", Status: "failed"},
	}})

	w := httptest.NewRecorder()
	h.ListDeliveries(w, httptest.NewRequest(http.MethodGet, "/deliveries", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Data  []model.DeliveryRecord `json:"data"`
		Count int                    `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "b@x.com", res.Data[0].Recipient)
}

func TestListDeliveriesError(t *testing.T) {
	t.Parallel()

	h := newInsightHandler(&MockDeliveryLogRepo{err: errors.New("db down")})
	w := httptest.NewRecorder()
	h.ListDeliveries(w, httptest.NewRequest(http.MethodGet, "/deliveries", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"db down"}`, w.Body.String())
}

func TestAnalytics(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newInsightHandler(&MockDeliveryLogRepo{}).Analytics(w, httptest.NewRequest(http.MethodGet, "/analytics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Total    int                `json:"total"`
		ByStatus map[string]int     `json:"by_status"`
		Timeline []model.DailyCount `json:"timeline"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.ByStatus["failed"])
	assert.Len(t, res.Timeline, 1)
}

func TestAppointments(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newInsightHandler(&MockDeliveryLogRepo{}).Appointments(w, httptest.NewRequest(http.MethodGet, "/appointments", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Intro")
}

func TestSentiment(t *testing.T) {
	t.Parallel()

	h := newInsightHandler(&MockDeliveryLogRepo{})

	w := httptest.NewRecorder()
	h.Sentiment(w, httptest.NewRequest(http.MethodPost, "/sentiment", strings.NewReader(`{"text":"What a great and happy day!"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	var res model.SentimentResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "Positive", res.Label)

	w = httptest.NewRecorder()
	h.Sentiment(w, httptest.NewRequest(http.MethodPost, "/sentiment", strings.NewReader(`{"text":""}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.Sentiment(w, httptest.NewRequest(http.MethodPost, "/sentiment", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	h := &handler.HealthHandler{Checks: map[string]handler.CheckFunc{
		"redis": handler.RedisCheck(client),
	}}

	w := httptest.NewRecorder()
	h.Healthz(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	h.Checks["broken"] = func(context.Context) error { return errors.New("nope") }
	w = httptest.NewRecorder()
	h.Healthz(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "nope")
}

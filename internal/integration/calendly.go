// internal/integration/calendly.go
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/unclebandit/leadflow-backend/internal/model"
)

const DefaultCalendlyAPIURL = "https://api.calendly.com"

// BookingSource returns booked meetings. It never fails; problems yield an
// empty slice.
type BookingSource interface {
	FetchBookings(ctx context.Context) []model.Booking
}

type CalendlyProvider struct {
	BaseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewCalendlyProvider authenticates with a personal access token. An empty
// token leaves the provider disabled.
func NewCalendlyProvider(baseURL, token string, log *slog.Logger) *CalendlyProvider {
	if baseURL == "" {
		baseURL = DefaultCalendlyAPIURL
	}
	p := &CalendlyProvider{BaseURL: strings.TrimRight(baseURL, "/"), log: log}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: 15 * time.Second})
		p.client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	}
	return p
}

type scheduledEventsResponse struct {
	Collection []struct {
		Name      string `json:"name"`
		StartTime string `json:"start_time"`
		Status    string `json:"status"`
	} `json:"collection"`
}

func (p *CalendlyProvider) FetchBookings(ctx context.Context) []model.Booking {
	bookings := []model.Booking{}
	if p.client == nil {
		return bookings
	}

	events, err := p.scheduledEvents(ctx)
	if err != nil {
		p.log.WarnContext(ctx, "calendly fetch failed", slog.Any("err", err))
		return bookings
	}
	for _, e := range events.Collection {
		bookings = append(bookings, model.Booking{EventName: e.Name, StartTime: e.StartTime, Status: e.Status})
	}
	return bookings
}

func (p *CalendlyProvider) scheduledEvents(ctx context.Context) (*scheduledEventsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/scheduled_events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out scheduledEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode scheduled events: %w", err)
	}
	return &out, nil
}

var _ BookingSource = (*CalendlyProvider)(nil)

// internal/service/worker.go
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/unclebandit/leadflow-backend/internal/logger"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/queue"
)

// Worker tallies delivery events coming off the event bus.
type Worker struct {
	Events <-chan model.DeliveryRecord
	Log    *slog.Logger

	mu     sync.Mutex
	totals map[string]int
	runs   map[string]map[string]int
}

func NewWorker(events <-chan model.DeliveryRecord, log *slog.Logger) *Worker {
	return &Worker{
		Events: events,
		Log:    log,
		totals: map[string]int{},
		runs:   map[string]map[string]int{},
	}
}

// Start consumes events until the channel is closed or ctx is done.
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-w.Events:
			if !ok {
				return
			}
			w.Record(rec)
		}
	}
}

func (w *Worker) Record(rec model.DeliveryRecord) {
	w.mu.Lock()
	w.totals[rec.Status]++
	if w.runs[rec.RunID] == nil {
		w.runs[rec.RunID] = map[string]int{}
	}
	w.runs[rec.RunID][rec.Status]++
	w.mu.Unlock()

	ctx := logger.WithRunID(context.Background(), rec.RunID)
	attrs := []any{slog.String("recipient", rec.Recipient), slog.String("status", rec.Status)}
	if rec.Error != nil {
		attrs = append(attrs, slog.String("error", *rec.Error))
	}
	w.Log.InfoContext(ctx, "delivery event", attrs...)
}

// Totals returns outcome counts across all runs.
func (w *Worker) Totals() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int, len(w.totals))
	for k, v := range w.totals {
		out[k] = v
	}
	return out
}

func (w *Worker) RunTotals(runID string) map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := map[string]int{}
	for k, v := range w.runs[runID] {
		out[k] = v
	}
	return out
}

// SubscribeDeliveries feeds delivery events published on q into events.
// Malformed payloads are dropped, not redelivered.
func SubscribeDeliveries(ctx context.Context, q queue.Queue, events chan<- model.DeliveryRecord, log *slog.Logger) error {
	return q.Subscribe(queue.TopicDeliveryEvents, func(body []byte) error {
		var rec model.DeliveryRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			log.Warn("malformed delivery event dropped", slog.Any("err", err))
			return nil
		}
		select {
		case events <- rec:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

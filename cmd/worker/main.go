// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/unclebandit/leadflow-backend/internal/config"
	"github.com/unclebandit/leadflow-backend/internal/logger"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/queue"
	"github.com/unclebandit/leadflow-backend/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(logger.New(slog.LevelInfo))
	if err != nil {
		return err
	}
	log := logger.New(cfg.SlogLevel())

	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the worker")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	q, err := queue.DialAMQP(cfg.AMQPURL, log)
	if err != nil {
		return err
	}
	defer q.Close()

	events := make(chan model.DeliveryRecord, 64)
	worker := service.NewWorker(events, log)

	if err := subscribe(ctx, q, worker, events, log); err != nil {
		return err
	}

	log.Info("worker running, waiting for delivery events")
	worker.Start(ctx)
	log.Info("worker stopped", slog.Any("totals", worker.Totals()))
	return nil
}

// subscribe wires the delivery and progress topics to the worker.
func subscribe(ctx context.Context, q queue.Queue, worker *service.Worker, events chan<- model.DeliveryRecord, log *slog.Logger) error {
	if err := service.SubscribeDeliveries(ctx, q, events, log); err != nil {
		return err
	}

	tracker := queue.NewProgressTracker()
	tracker.OnDone = func(p model.Progress) {
		ctx := logger.WithRunID(context.Background(), p.RunID)
		log.InfoContext(ctx, "campaign run finished",
			slog.Int("rows", p.Total),
			slog.Any("outcomes", worker.RunTotals(p.RunID)),
		)
	}
	return tracker.Attach(q)
}

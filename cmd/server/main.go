// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/leadflow-backend/internal/config"
	"github.com/unclebandit/leadflow-backend/internal/controller"
	"github.com/unclebandit/leadflow-backend/internal/db"
	"github.com/unclebandit/leadflow-backend/internal/handler"
	"github.com/unclebandit/leadflow-backend/internal/integration"
	"github.com/unclebandit/leadflow-backend/internal/logger"
	"github.com/unclebandit/leadflow-backend/internal/mailer"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/queue"
	"github.com/unclebandit/leadflow-backend/internal/repository"
	"github.com/unclebandit/leadflow-backend/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(logger.New(slog.LevelInfo))
	if err != nil {
		return err
	}
	log := logger.New(cfg.SlogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, _, err := db.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	checks := map[string]handler.CheckFunc{"database": handler.DatabaseCheck(conn)}

	var store repository.RecipientStore = repository.NewMemoryRecipientStore()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		client := redis.NewClient(opts)
		defer client.Close()
		store = repository.NewRedisRecipientStore(client, cfg.RecipientListTTL)
		checks["redis"] = handler.RedisCheck(client)
	}

	var q queue.Queue = queue.NewInMemoryQueue(log)
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, log)
		if err != nil {
			return err
		}
		defer amqpQueue.Close()
		q = amqpQueue
	}

	var transport mailer.Transport = mailer.NewSMTPTransport(mailer.SMTPConfig{
		Host:    cfg.SMTPHost,
		Port:    cfg.SMTPPort,
		Timeout: cfg.SMTPSendTimeout,
	}, log)
	if cfg.MailTransport == "log" {
		transport = mailer.NewLogTransport(log)
	}

	deliveryRepo := repository.NewDeliveryLogRepository(conn)
	progress := queue.NewProgressTracker()
	onProgress, err := wireEvents(ctx, q, progress, cfg.AMQPURL != "", log)
	if err != nil {
		return err
	}

	leadService := &service.LeadService{Store: store, Log: log}
	campaignService := &service.CampaignService{
		Renderer: service.NewTemplateRenderer(service.TemplateDefaults{
			FirstName: cfg.DefaultFirstName,
			LastName:  cfg.DefaultLastName,
			Company:   cfg.DefaultCompany,
		}, cfg.SchedulingLink),
		Transport:   transport,
		DeliveryLog: deliveryRepo,
		Queue:       q,
		Log:         log,
		SendTimeout: cfg.SendTimeout,
	}

	router := newRouter(routes{
		leads: &controller.LeadController{
			LeadService: leadService,
			Source:      integration.NewSeamlessProvider(log),
		},
		campaigns: &controller.CampaignController{
			CampaignService: campaignService,
			LeadService:     leadService,
			Progress:        progress,
			OnProgress:      onProgress,
			RunContext:      ctx,
		},
		insights: &handler.InsightHandler{
			Repo:     deliveryRepo,
			Bookings: integration.NewCalendlyProvider(cfg.CalendlyAPIURL, cfg.CalendlyAccessToken, log),
			Analyzer: service.NewSentimentService(),
		},
		health: &handler.HealthHandler{Checks: checks},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		// campaign sends answer only when the run is over, so no write timeout
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("address", cfg.HTTPAddr), slog.String("mail_transport", transport.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// wireEvents connects the event bus to the progress tracker and an
// in-process delivery tally. On AMQP both topics are consumed by cmd/worker,
// so progress is recorded straight from the runner instead.
func wireEvents(ctx context.Context, q queue.Queue, progress *queue.ProgressTracker, external bool, log *slog.Logger) (service.ProgressFunc, error) {
	if external {
		return progress.Record, nil
	}
	if err := progress.Attach(q); err != nil {
		return nil, err
	}
	events := make(chan model.DeliveryRecord, 64)
	if err := service.SubscribeDeliveries(ctx, q, events, log); err != nil {
		return nil, err
	}
	go service.NewWorker(events, log).Start(ctx)
	return nil, nil
}

type routes struct {
	leads     *controller.LeadController
	campaigns *controller.CampaignController
	insights  *handler.InsightHandler
	health    *handler.HealthHandler
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", rt.health.Healthz)

	// Lead routes
	r.Post("/leads", rt.leads.UploadLeads)
	r.Post("/leads/import", rt.leads.ImportLeads)
	r.Get("/leads/{id}", rt.leads.GetLeads)

	// Campaign routes
	r.Post("/campaigns/send", rt.campaigns.SendCampaign)
	r.Post("/campaigns/preview", rt.campaigns.PersonalizedPreview)
	r.Get("/campaigns/runs/{id}", rt.campaigns.GetRunProgress)

	// Read-only views
	r.Get("/deliveries", rt.insights.ListDeliveries)
	r.Get("/analytics", rt.insights.Analytics)
	r.Get("/appointments", rt.insights.Appointments)
	r.Post("/sentiment", rt.insights.Sentiment)

	return r
}

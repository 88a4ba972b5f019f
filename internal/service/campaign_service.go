// internal/service/campaign_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/logger"
	"github.com/unclebandit/leadflow-backend/internal/mailer"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/queue"
)

// DeliveryLog is the part of the delivery log repository a run writes to.
type DeliveryLog interface {
	Append(ctx context.Context, rec *model.DeliveryRecord) error
}

// ProgressFunc is called after every row of a run, including skipped ones.
type ProgressFunc func(model.Progress)

type CampaignService struct {
	Renderer    *TemplateRenderer
	Transport   mailer.Transport
	DeliveryLog DeliveryLog
	Queue       queue.Queue // optional
	Log         *slog.Logger
	SendTimeout time.Duration
}

// outcome is the result of one delivery attempt.
type outcome struct {
	recipient string
	err       error
}

// Run sends the campaign to every recipient with an email address, one at a
// time and in list order. Only validation, template and session setup
// failures abort the run; per-recipient failures end up in the summary.
func (s *CampaignService) Run(ctx context.Context, req model.CampaignRequest, progress ProgressFunc) (*model.CampaignSummary, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	ctx = logger.WithRunID(ctx, req.RunID)

	src := req.Template
	if strings.TrimSpace(src) == "" {
		src = DefaultTemplate()
	}
	tpl, err := s.Renderer.Compile(src)
	if err != nil {
		return nil, err
	}

	eligible := 0
	for _, r := range req.Recipients {
		if r.HasEmail() {
			eligible++
		}
	}
	skipped := len(req.Recipients) - eligible

	if eligible == 0 {
		s.Log.InfoContext(ctx, "campaign has no deliverable recipients", slog.Int("rows", len(req.Recipients)))
		for i := range req.Recipients {
			s.report(ctx, progress, req.RunID, i+1, len(req.Recipients))
		}
		summary := summarize(req.RunID, nil, 0, skipped)
		return &summary, nil
	}

	attachment := bufferAttachment(req.Attachment)

	session, err := s.Transport.Open(ctx, req.Sender)
	if err != nil {
		var setupErr *appErrors.TransportSetupError
		if !errors.As(err, &setupErr) {
			err = appErrors.NewTransportSetup(req.Sender.Account, err)
		}
		s.Log.ErrorContext(ctx, "mail session setup failed", slog.String("transport", s.Transport.Name()), slog.Any("err", err))
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.Log.WarnContext(ctx, "mail session close failed", slog.Any("err", err))
		}
	}()

	s.Log.InfoContext(ctx, "campaign started",
		slog.String("transport", s.Transport.Name()),
		slog.Int("eligible", eligible),
		slog.Int("skipped", skipped),
	)

	outcomes := make([]outcome, 0, eligible)
	for i, rcpt := range req.Recipients {
		if err := ctx.Err(); err != nil {
			summary := summarize(req.RunID, outcomes, eligible, skipped)
			s.Log.WarnContext(ctx, "campaign interrupted", slog.Int("processed", i), slog.Any("err", err))
			return &summary, fmt.Errorf("campaign %s interrupted after %d rows: %w", req.RunID, i, err)
		}

		if rcpt.HasEmail() {
			body, err := tpl.Render(rcpt)
			if err != nil {
				summary := summarize(req.RunID, outcomes, eligible, skipped)
				s.Log.ErrorContext(ctx, "template rendering failed", slog.Int("row", rcpt.Row), slog.Int("sent", summary.Sent), slog.Any("err", err))
				return &summary, err
			}
			outcomes = append(outcomes, s.deliver(ctx, session, req, rcpt, body, attachment))
		}

		s.report(ctx, progress, req.RunID, i+1, len(req.Recipients))
	}

	summary := summarize(req.RunID, outcomes, eligible, skipped)
	s.Log.InfoContext(ctx, "campaign finished",
		slog.Int("sent", summary.Sent),
		slog.Int("failed", summary.Failed),
		slog.Int("total", summary.Total),
	)
	return &summary, nil
}

// Preview renders src (or the bundled template) for one recipient.
func (s *CampaignService) Preview(src string, rcpt model.Recipient) (string, error) {
	if strings.TrimSpace(src) == "" {
		src = DefaultTemplate()
	}
	return s.Renderer.Preview(src, rcpt)
}

func (s *CampaignService) deliver(ctx context.Context, session mailer.Session, req model.CampaignRequest, rcpt model.Recipient, body string, att *model.Attachment) outcome {
	email := strings.TrimSpace(rcpt.Email)

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout())
	err := session.Send(sendCtx, mailer.Message{
		From:       req.Sender.Account,
		To:         email,
		Subject:    req.Subject,
		HTML:       body,
		Attachment: att,
	})
	cancel()

	rec := &model.DeliveryRecord{
		RunID:     req.RunID,
		Recipient: email,
		Subject:   req.Subject,
		Status:    model.DeliveryStatusSent,
	}
	if err != nil {
		var de *appErrors.DeliveryError
		if !errors.As(err, &de) {
			err = appErrors.NewDelivery(email, errors.Is(err, context.DeadlineExceeded), err)
		}
		msg := err.Error()
		rec.Status = model.DeliveryStatusFailed
		rec.Error = &msg
		s.Log.WarnContext(ctx, "delivery failed", slog.String("recipient", email), slog.Any("err", err))
	} else {
		s.Log.DebugContext(ctx, "delivered", slog.String("recipient", email))
	}

	// the attempt happened, so its record is written even during shutdown
	if logErr := s.DeliveryLog.Append(context.WithoutCancel(ctx), rec); logErr != nil {
		s.Log.ErrorContext(ctx, "delivery log append failed", slog.String("recipient", email), slog.Any("err", logErr))
	}
	s.publish(ctx, queue.TopicDeliveryEvents, rec)

	return outcome{recipient: email, err: err}
}

func (s *CampaignService) report(ctx context.Context, progress ProgressFunc, runID string, processed, total int) {
	p := model.Progress{RunID: runID, Processed: processed, Total: total, Done: processed == total}
	if total > 0 {
		p.Fraction = float64(processed) / float64(total)
	}
	if progress != nil {
		progress(p)
	}
	s.publish(ctx, queue.TopicCampaignProgress, p)
}

func (s *CampaignService) publish(ctx context.Context, topic string, payload any) {
	if s.Queue == nil {
		return
	}
	if err := s.Queue.Publish(topic, payload); err != nil {
		s.Log.WarnContext(ctx, "event publish failed", slog.String("topic", topic), slog.Any("err", err))
	}
}

func (s *CampaignService) sendTimeout() time.Duration {
	if s.SendTimeout > 0 {
		return s.SendTimeout
	}
	return 30 * time.Second
}

func validateRequest(req model.CampaignRequest) error {
	switch {
	case strings.TrimSpace(req.Sender.Account) == "":
		return appErrors.NewValidation("sender account", "must not be empty")
	case req.Sender.Secret == "":
		return appErrors.NewValidation("sender secret", "must not be empty")
	case strings.TrimSpace(req.Subject) == "":
		return appErrors.NewValidation("subject", "must not be empty")
	case req.Attachment != nil && strings.TrimSpace(req.Attachment.Filename) == "":
		return appErrors.NewValidation("attachment", "filename must not be empty")
	}
	return nil
}

// bufferAttachment takes one private copy of the attachment bytes; every
// message of the run reads from it.
func bufferAttachment(a *model.Attachment) *model.Attachment {
	if a == nil {
		return nil
	}
	content := make([]byte, len(a.Content))
	copy(content, a.Content)
	return &model.Attachment{Filename: a.Filename, ContentType: a.ContentType, Content: content}
}

// summarize folds the per-recipient outcomes into the run summary.
func summarize(runID string, outcomes []outcome, total, skipped int) model.CampaignSummary {
	summary := model.CampaignSummary{
		RunID:    runID,
		Total:    total,
		Skipped:  skipped,
		Failures: []model.DeliveryFailure{},
	}
	for _, o := range outcomes {
		if o.err == nil {
			summary.Sent++
			continue
		}
		failure := model.DeliveryFailure{Recipient: o.recipient, Error: o.err.Error()}
		var de *appErrors.DeliveryError
		if errors.As(o.err, &de) {
			failure.Temporary = de.Temporary
		}
		summary.Failed++
		summary.Failures = append(summary.Failures, failure)
	}
	return summary
}

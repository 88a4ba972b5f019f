// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/handler"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/queue"
	"github.com/unclebandit/leadflow-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	LeadService     *service.LeadService
	Progress        *queue.ProgressTracker
	// OnProgress is called after every row. Leave nil when Progress is fed
	// from the event bus.
	OnProgress service.ProgressFunc
	// RunContext bounds campaign runs instead of the request, which ends
	// when the client goes away. Cancelled at server shutdown.
	RunContext context.Context
}

type sendCampaignRequest struct {
	ListID      string            `json:"list_id"`
	RunID       string            `json:"run_id"`
	Account     string            `json:"account"`
	AppPassword string            `json:"app_password"`
	Subject     string            `json:"subject"`
	Template    string            `json:"template"`
	Attachment  *model.Attachment `json:"attachment"`
}

// SendCampaign runs a campaign over a stored list and answers with the
// summary once every recipient has been processed.
func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	var body sendCampaignRequest
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}
	if body.ListID == "" {
		handler.WriteError(w, appErrors.NewValidation("list_id", "must not be empty"))
		return
	}

	list, err := c.LeadService.Get(r.Context(), body.ListID)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	ctx, cancel := c.runContext(r)
	defer cancel()

	summary, err := c.CampaignService.Run(ctx, model.CampaignRequest{
		RunID:      body.RunID,
		Sender:     model.Credentials{Account: body.Account, Secret: body.AppPassword},
		Subject:    body.Subject,
		Template:   body.Template,
		Attachment: body.Attachment,
		Recipients: list.Recipients,
	}, c.OnProgress)
	if err != nil {
		if summary == nil {
			handler.WriteError(w, err)
			return
		}
		// stopped partway: report what was already sent
		handler.WriteJSON(w, handler.StatusFor(err), map[string]any{
			"error":   err.Error(),
			"summary": summary,
			"message": summary.Message(),
		})
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"message": summary.Message(),
	})
}

// runContext detaches the run from the request so a dropped connection does
// not stop it halfway. Only RunContext can cancel it.
func (c *CampaignController) runContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	if c.RunContext == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(c.RunContext, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// PersonalizedPreview renders the template for one row of a stored list.
func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ListID   string `json:"list_id"`
		Row      int    `json:"row"`
		Template string `json:"template"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}

	list, err := c.LeadService.Get(r.Context(), body.ListID)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	var rcpt *model.Recipient
	for i := range list.Recipients {
		if list.Recipients[i].Row == body.Row {
			rcpt = &list.Recipients[i]
			break
		}
	}
	if rcpt == nil {
		handler.WriteError(w, appErrors.NewValidation("row", "no such row in list"))
		return
	}

	rendered, err := c.CampaignService.Preview(body.Template, *rcpt)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"rendered_message": rendered,
		"recipient":        rcpt,
	})
}

// GetRunProgress reports how far a run has got.
func (c *CampaignController) GetRunProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := c.Progress.Get(id)
	if !ok {
		handler.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "run " + id + " not found"})
		return
	}
	handler.WriteJSON(w, http.StatusOK, p)
}

// internal/controller/lead_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/leadflow-backend/internal/handler"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/service"
)

type LeadController struct {
	LeadService *service.LeadService
	Source      service.LeadSource
}

type listResponse struct {
	ListID     string         `json:"list_id"`
	Recipients int            `json:"recipients"`
	Dropped    int            `json:"dropped,omitempty"`
	Segments   map[string]int `json:"segments"`
	CreatedAt  time.Time      `json:"created_at"`
}

func newListResponse(list *model.RecipientList, rows int) listResponse {
	return listResponse{
		ListID:     list.ID,
		Recipients: len(list.Recipients),
		Dropped:    rows - len(list.Recipients),
		Segments:   list.Segments,
		CreatedAt:  list.CreatedAt,
	}
}

// UploadLeads cleans already-parsed rows and stores them as a new list.
func (c *LeadController) UploadLeads(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rows []map[string]string `json:"rows"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}

	list, err := c.LeadService.Upload(r.Context(), body.Rows)
	if err != nil {
		handler.WriteError(w, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, newListResponse(list, len(body.Rows)))
}

func (c *LeadController) ImportLeads(w http.ResponseWriter, r *http.Request) {
	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}

	list, err := c.LeadService.Import(r.Context(), c.Source, body.APIKey)
	if err != nil {
		handler.WriteError(w, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, newListResponse(list, len(list.Recipients)))
}

func (c *LeadController) GetLeads(w http.ResponseWriter, r *http.Request) {
	list, err := c.LeadService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, list)
}

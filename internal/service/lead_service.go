// internal/service/lead_service.go
package service

import (
	"context"
	"log/slog"
	"strings"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/repository"
)

// LeadSource fetches raw lead rows from a third-party provider. It returns an
// empty slice on any failure.
type LeadSource interface {
	FetchLeads(ctx context.Context, apiKey string) []map[string]string
}

type LeadService struct {
	Store repository.RecipientStore
	Log   *slog.Logger
}

// Clean trims every value, drops rows without an email and maps the known
// columns onto a Recipient. Unknown columns are kept in Extra.
func (s *LeadService) Clean(rows []map[string]string) (*model.RecipientList, error) {
	if len(rows) == 0 {
		return nil, appErrors.NewValidation("rows", "no rows supplied")
	}

	hasEmailColumn := false
	list := &model.RecipientList{Recipients: []model.Recipient{}, Segments: map[string]int{}}

	for i, row := range rows {
		r := model.Recipient{Row: i}
		for key, value := range row {
			value = strings.TrimSpace(value)
			switch normalizeColumn(key) {
			case "email":
				hasEmailColumn = true
				r.Email = value
			case "firstname":
				r.FirstName = value
			case "lastname":
				r.LastName = value
			case "company":
				r.Company = value
			default:
				if r.Extra == nil {
					r.Extra = map[string]string{}
				}
				r.Extra[strings.TrimSpace(key)] = value
			}
		}
		if !r.HasEmail() {
			continue
		}
		if r.Company != "" {
			list.Segments[r.Company]++
		}
		list.Recipients = append(list.Recipients, r)
	}

	if !hasEmailColumn {
		return nil, appErrors.NewValidation("rows", "no Email column")
	}
	return list, nil
}

// Upload cleans rows and stores the resulting list.
func (s *LeadService) Upload(ctx context.Context, rows []map[string]string) (*model.RecipientList, error) {
	list, err := s.Clean(rows)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, list); err != nil {
		return nil, err
	}
	s.Log.InfoContext(ctx, "recipient list stored",
		slog.String("list_id", list.ID),
		slog.Int("rows", len(rows)),
		slog.Int("kept", len(list.Recipients)),
	)
	return list, nil
}

// Import pulls rows from a lead source and uploads them like a file.
func (s *LeadService) Import(ctx context.Context, source LeadSource, apiKey string) (*model.RecipientList, error) {
	rows := source.FetchLeads(ctx, apiKey)
	if len(rows) == 0 {
		return nil, appErrors.NewValidation("", "no leads found")
	}
	return s.Upload(ctx, rows)
}

func (s *LeadService) Get(ctx context.Context, id string) (*model.RecipientList, error) {
	return s.Store.Get(ctx, id)
}

// normalizeColumn maps "First Name", "first_name" and "FirstName" alike.
func normalizeColumn(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
}

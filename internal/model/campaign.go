// internal/model/campaign.go
package model

import "fmt"

type Credentials struct {
	Account string `json:"account"`
	Secret  string `json:"-"`
}

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// CampaignRequest is built per send action and never persisted.
type CampaignRequest struct {
	RunID      string
	Sender     Credentials
	Subject    string
	Template   string
	Attachment *Attachment
	Recipients []Recipient
}

type DeliveryFailure struct {
	Recipient string `json:"recipient"`
	Error     string `json:"error"`
	Temporary bool   `json:"temporary"`
}

// CampaignSummary is the result of one run. Total counts only recipients
// with a usable address; Skipped counts the rest.
type CampaignSummary struct {
	RunID    string            `json:"run_id"`
	Sent     int               `json:"sent"`
	Failed   int               `json:"failed"`
	Total    int               `json:"total"`
	Skipped  int               `json:"skipped"`
	Failures []DeliveryFailure `json:"failures"`
}

func (s CampaignSummary) Message() string {
	return fmt.Sprintf("sent %d of %d", s.Sent, s.Total)
}

type Progress struct {
	RunID     string  `json:"run_id"`
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"`
	Done      bool    `json:"done"`
}

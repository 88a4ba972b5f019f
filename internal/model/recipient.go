// internal/model/recipient.go
package model

import (
	"strings"
	"time"
)

type Recipient struct {
	Row       int               `json:"row"`
	Email     string            `json:"email"`
	FirstName string            `json:"first_name,omitempty"`
	LastName  string            `json:"last_name,omitempty"`
	Company   string            `json:"company,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// HasEmail reports whether the row can be attempted at all.
func (r Recipient) HasEmail() bool {
	return strings.TrimSpace(r.Email) != ""
}

// RecipientList is one cleaned upload, kept for the session that created it.
type RecipientList struct {
	ID         string         `json:"id"`
	Recipients []Recipient    `json:"recipients"`
	Segments   map[string]int `json:"segments"`
	CreatedAt  time.Time      `json:"created_at"`
}

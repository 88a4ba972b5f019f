// internal/model/delivery_record.go
package model

import "time"

const (
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)

type DeliveryRecord struct {
	ID        int64     `db:"id" json:"id"`
	RunID     string    `db:"run_id" json:"run_id,omitempty"`
	Recipient string    `db:"recipient" json:"recipient"`
	Subject   string    `db:"subject" json:"subject"`
	Status    string    `db:"status" json:"status"` // sent, failed
	Error     *string   `db:"error" json:"error"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// internal/model/insight.go
package model

type Booking struct {
	EventName string `json:"event_name"`
	StartTime string `json:"start_time"`
	Status    string `json:"status"`
}

type SentimentResult struct {
	Negative float64 `json:"neg"`
	Neutral  float64 `json:"neu"`
	Positive float64 `json:"pos"`
	Compound float64 `json:"compound"`
	Label    string  `json:"label"`
}

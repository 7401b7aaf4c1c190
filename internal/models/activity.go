package models

import "time"

// Activity is a feed-level notification summarising a system event.
type Activity struct {
	ID         string       `json:"id"`
	ClientID   string       `json:"clientId"`
	ClientName string       `json:"clientName"`
	Type       ActivityType `json:"type"`
	Message    string       `json:"message"`
	Timestamp  time.Time    `json:"timestamp"`
}

package api

import "github.com/starford/naarad/internal/models"

// ClientListResponse wraps a filtered client listing.
type ClientListResponse struct {
	Clients []models.Client `json:"clients" validate:"required"`
	Total   int             `json:"total" example:"42" validate:"required"`
	// Counts holds per-status totals of the unfiltered list; "all" is the grand total.
	Counts map[string]int `json:"counts" validate:"required"`
}

// SetAutoRequest is the request body for toggling automation.
type SetAutoRequest struct {
	Auto *bool `json:"auto" example:"true" validate:"required"`
}

// ReplyRequest is the request body for sending a manual reply.
type ReplyRequest struct {
	Reply string `json:"reply" example:"Thanks, talk soon" validate:"required"`
}

// ResponseRequest is the request body for logging a client response.
type ResponseRequest struct {
	Response string `json:"response" example:"Call me next week" validate:"required"`
}

// HistoryResponse wraps a client's interaction history.
type HistoryResponse struct {
	Entries []models.HistoryEntry `json:"entries" validate:"required"`
	// Initial is the entry the dashboard shows as the client's follow-up.
	Initial *models.HistoryEntry `json:"initial,omitempty"`
}

// UploadResponse is returned after a successful CSV upload.
type UploadResponse struct {
	Count int `json:"count" example:"12" validate:"required"`
}

// ActivityResponse wraps the activity feed, newest first.
type ActivityResponse struct {
	Activities []models.Activity `json:"activities" validate:"required"`
}

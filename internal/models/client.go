package models

import (
	"encoding/json"
	"time"
)

// Client is one managed client as the dashboard sees it.
//
// Auto is the single automation flag. The JSON form exposes it under both
// "auto" and "autoManage"; Priority is likewise exposed as "priority" and
// "urgency". Keep those aliases at the encoding boundary only.
type Client struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	Company          string
	Status           Status
	Priority         Priority
	LastInteraction  time.Time
	NextFollowUp     *time.Time
	FollowUpCadence  Cadence
	PreferredChannel Channel
	Auto             bool
	Notes            string
	Tags             []string
	Interactions     []Interaction

	// Upload contract fields required by the backend.
	Type    string
	DueDate *time.Time
	Details *string
}

type clientJSON struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	Phone            string        `json:"phone,omitempty"`
	Company          string        `json:"company"`
	Status           Status        `json:"status"`
	Priority         Priority      `json:"priority,omitempty"`
	Urgency          Priority      `json:"urgency,omitempty"`
	LastInteraction  string        `json:"lastInteraction"`
	NextFollowUp     *string       `json:"nextFollowUp,omitempty"`
	FollowUpCadence  Cadence       `json:"followUpCadence,omitempty"`
	PreferredChannel Channel       `json:"preferredChannel,omitempty"`
	Auto             *bool         `json:"auto,omitempty"`
	AutoManage       *bool         `json:"autoManage,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	Tags             []string      `json:"tags,omitempty"`
	Interactions     []Interaction `json:"interactions,omitempty"`
	Type             string        `json:"type"`
	DueDate          *string       `json:"dueDate"`
	Details          *string       `json:"details"`
}

// MarshalJSON writes both names of every aliased field with the same value.
func (c Client) MarshalJSON() ([]byte, error) {
	auto := c.Auto
	return json.Marshal(clientJSON{
		ID:               c.ID,
		Name:             c.Name,
		Email:            c.Email,
		Phone:            c.Phone,
		Company:          c.Company,
		Status:           c.Status,
		Priority:         c.Priority,
		Urgency:          c.Priority,
		LastInteraction:  FormatISO(c.LastInteraction),
		NextFollowUp:     formatOptional(c.NextFollowUp),
		FollowUpCadence:  c.FollowUpCadence,
		PreferredChannel: c.PreferredChannel,
		Auto:             &auto,
		AutoManage:       &auto,
		Notes:            c.Notes,
		Tags:             c.Tags,
		Interactions:     c.Interactions,
		Type:             c.Type,
		DueDate:          formatOptional(c.DueDate),
		Details:          c.Details,
	})
}

// UnmarshalJSON reads "auto" before "autoManage" and "priority" before
// "urgency". Unparseable dates decode as zero values.
func (c *Client) UnmarshalJSON(data []byte) error {
	var w clientJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Client{
		ID:               w.ID,
		Name:             w.Name,
		Email:            w.Email,
		Phone:            w.Phone,
		Company:          w.Company,
		Status:           w.Status,
		Priority:         w.Priority,
		NextFollowUp:     parseOptional(w.NextFollowUp),
		FollowUpCadence:  w.FollowUpCadence,
		PreferredChannel: w.PreferredChannel,
		Notes:            w.Notes,
		Tags:             w.Tags,
		Interactions:     w.Interactions,
		Type:             w.Type,
		DueDate:          parseOptional(w.DueDate),
		Details:          w.Details,
	}
	if c.Priority == "" {
		c.Priority = w.Urgency
	}
	switch {
	case w.Auto != nil:
		c.Auto = *w.Auto
	case w.AutoManage != nil:
		c.Auto = *w.AutoManage
	}
	if t, err := ParseTime(w.LastInteraction); err == nil {
		c.LastInteraction = t
	}
	return nil
}

// WithAuto returns a copy of c with the automation flag set to v.
func (c Client) WithAuto(v bool) Client {
	c.Auto = v
	return c
}

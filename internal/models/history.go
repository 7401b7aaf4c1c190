package models

import (
	"strconv"
	"time"
)

// Interaction is one message exchange shown in the detail timeline.
type Interaction struct {
	ID             string            `json:"id"`
	Type           InteractionType   `json:"type"`
	Content        string            `json:"content"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         InteractionStatus `json:"status,omitempty"`
	AgentRationale string            `json:"agentRationale,omitempty"`
}

// HistoryEntry is a record returned by the history endpoint. Any subset of
// the fields may be present.
type HistoryEntry struct {
	Type      string `json:"type,omitempty"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
	Rationale string `json:"rationale,omitempty"`
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Entry types and roles written by the backend agent.
const (
	EntryTypeNaarad = "naarad"
	EntryTypeReply  = "reply"
	EntryRoleAgent  = "agent"
)

// Text returns the message body, preferring content over message.
func (e HistoryEntry) Text() string {
	if e.Content != "" {
		return e.Content
	}
	return e.Message
}

// Time returns the parsed timestamp, or the zero time.
func (e HistoryEntry) Time() time.Time {
	t, err := ParseTime(e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsAgent reports whether the entry was written by the automation.
func (e HistoryEntry) IsAgent() bool {
	return e.Type == EntryTypeNaarad || e.Role == EntryRoleAgent
}

// Interaction converts the entry at position i into an Interaction.
func (e HistoryEntry) Interaction(i int) Interaction {
	return Interaction{
		ID:             strconv.Itoa(i),
		Type:           InteractionType(e.Type),
		Content:        e.Text(),
		Timestamp:      e.Time(),
		Status:         InteractionStatus(e.Status),
		AgentRationale: e.Rationale,
	}
}

// Interactions converts a history listing in received order.
func Interactions(entries []HistoryEntry) []Interaction {
	out := make([]Interaction, len(entries))
	for i, e := range entries {
		out[i] = e.Interaction(i)
	}
	return out
}

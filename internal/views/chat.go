package views

import "github.com/starford/naarad/internal/models"

// NoFollowupText is shown when a client has no history yet.
const NoFollowupText = "No follow-up yet."

// SelectInitialFollowup picks the entry shown by the initial follow-up widget:
// the first agent entry, else the first entry. ok is false for empty history.
func SelectInitialFollowup(entries []models.HistoryEntry) (models.HistoryEntry, bool) {
	for _, e := range entries {
		if e.IsAgent() {
			return e, true
		}
	}
	if len(entries) > 0 {
		return entries[0], true
	}
	return models.HistoryEntry{}, false
}

// ChatLine is one entry of the compact chat history widget.
type ChatLine struct {
	Class     string
	Type      string
	Content   string
	Rationale string
	Status    string
	Time      string
}

// ChatLines renders every entry in order. Agent messages and everything else
// get different colours; optional fields may be empty.
func ChatLines(entries []models.HistoryEntry) []ChatLine {
	out := make([]ChatLine, len(entries))
	for i, e := range entries {
		class := "chat-other"
		if e.Type == models.EntryTypeNaarad {
			class = "chat-naarad"
		}
		out[i] = ChatLine{
			Class:     class,
			Type:      e.Type,
			Content:   e.Text(),
			Rationale: e.Rationale,
			Status:    e.Status,
			Time:      FormatTimestamp(e.Time()),
		}
	}
	return out
}

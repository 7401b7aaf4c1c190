// Package views holds the presentation rules of the dashboard pages: filters,
// lookup tables, time formatting and the settings draft. Nothing here does I/O.
package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/naarad/internal/models"
)

// StatusFilter narrows the dashboard list. The empty value is never used;
// see ParseStatusFilter.
type StatusFilter string

// FilterAll matches every status.
const FilterAll StatusFilter = "all"

// StatusFilters lists the filter options in display order.
var StatusFilters = []StatusFilter{
	FilterAll,
	StatusFilter(models.StatusActive),
	StatusFilter(models.StatusPending),
	StatusFilter(models.StatusOverdue),
	StatusFilter(models.StatusResponded),
}

// ParseStatusFilter maps a query value to a filter. Unknown values mean all.
func ParseStatusFilter(s string) StatusFilter {
	s = strings.ToLower(strings.TrimSpace(s))
	if models.Status(s).Valid() {
		return StatusFilter(s)
	}
	return FilterAll
}

// Matches reports whether c passes the search query and the status filter.
// The query is a case-insensitive substring of name or company.
func Matches(c models.Client, query string, status StatusFilter) bool {
	if status != FilterAll && status != "" && string(c.Status) != string(status) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Company), q)
}

// Filter returns the clients passing Matches, in their original order.
func Filter(clients []models.Client, query string, status StatusFilter) []models.Client {
	out := make([]models.Client, 0, len(clients))
	for _, c := range clients {
		if Matches(c, query, status) {
			out = append(out, c)
		}
	}
	return out
}

// StatusCounts counts clients per status. The FilterAll key holds the total.
func StatusCounts(clients []models.Client) map[StatusFilter]int {
	counts := make(map[StatusFilter]int, len(StatusFilters))
	for _, f := range StatusFilters {
		counts[f] = 0
	}
	for _, c := range clients {
		counts[FilterAll]++
		if c.Status.Valid() {
			counts[StatusFilter(c.Status)]++
		}
	}
	return counts
}

// Style is the icon and colour pair for a status badge.
type Style struct {
	Icon  string
	Class string
}

var statusStyles = map[models.Status]Style{
	models.StatusActive:    {Icon: "●", Class: "status-active"},
	models.StatusPending:   {Icon: "◷", Class: "status-pending"},
	models.StatusOverdue:   {Icon: "!", Class: "status-overdue"},
	models.StatusResponded: {Icon: "✓", Class: "status-responded"},
}

// StatusStyle returns the badge style of a status.
func StatusStyle(s models.Status) Style {
	if st, ok := statusStyles[s]; ok {
		return st
	}
	return Style{Icon: "○", Class: "status-unknown"}
}

var priorityBorders = map[models.Priority]string{
	models.PriorityHigh:   "border-high",
	models.PriorityMedium: "border-medium",
	models.PriorityLow:    "border-low",
}

// PriorityBorder returns the card border class of a priority.
func PriorityBorder(p models.Priority) string {
	if b, ok := priorityBorders[p]; ok {
		return b
	}
	return "border-none"
}

// FormatLastInteraction renders t relative to now in whole days: "Today",
// "Yesterday" or "{n} days ago". Days are counted as elapsed 24h periods, so a
// future time is "Today".
func FormatLastInteraction(t, now time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	days := int(now.Sub(t) / (24 * time.Hour))
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

// ToggleOpen returns the id to expand after clicking id while open is
// expanded. Clicking the open card collapses it.
func ToggleOpen(open, id string) string {
	if open == id {
		return ""
	}
	return id
}

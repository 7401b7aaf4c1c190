package csvimport

import (
	"time"

	"github.com/starford/naarad/internal/models"
)

// SampleClients returns the demo batch offered on the upload page. Dates are
// relative to now so the dashboard always shows a realistic spread.
func SampleClients(now time.Time) []models.Client {
	now = now.UTC().Truncate(time.Millisecond)
	day := 24 * time.Hour
	due := func(d int) *time.Time {
		t := now.Add(time.Duration(d) * day)
		return &t
	}
	details := func(s string) *string { return &s }

	return []models.Client{
		{
			ID:              "sample-1",
			Name:            "Priya Sharma",
			Email:           "priya.sharma@example.com",
			Company:         "Sharma Textiles",
			Status:          models.StatusActive,
			Priority:        models.PriorityHigh,
			LastInteraction: now.Add(-2 * day),
			Type:            "renewal",
			DueDate:         due(5),
			Details:         details("Annual maintenance contract renewal"),
			Auto:            true,
		},
		{
			ID:              "sample-2",
			Name:            "Arjun Mehta",
			Email:           "arjun@mehta-logistics.example.com",
			Company:         "Mehta Logistics",
			Status:          models.StatusPending,
			Priority:        models.PriorityMedium,
			LastInteraction: now.Add(-6 * day),
			Type:            "proposal",
			DueDate:         due(2),
			Details:         details("Waiting on feedback for the fleet tracking proposal"),
			Auto:            true,
		},
		{
			ID:              "sample-3",
			Name:            "Sara Khan",
			Email:           "sara.khan@example.com",
			Company:         "Khan & Co",
			Status:          models.StatusOverdue,
			Priority:        models.PriorityHigh,
			LastInteraction: now.Add(-14 * day),
			Type:            "query",
			Details:         details("Asked about bulk pricing, no reply yet"),
			Auto:            false,
		},
		{
			ID:              "sample-4",
			Name:            "Daniel Ortiz",
			Email:           "daniel.ortiz@example.com",
			Company:         "Ortiz Studio",
			Status:          models.StatusResponded,
			Priority:        models.PriorityLow,
			LastInteraction: now.Add(-1 * day),
			Type:            "birthday",
			DueDate:         due(10),
			Auto:            true,
		},
		{
			ID:              "sample-5",
			Name:            "Mei Lin",
			Email:           "mei.lin@example.com",
			Company:         "Lin Analytics",
			Status:          models.StatusPending,
			Priority:        models.PriorityMedium,
			LastInteraction: now,
			Type:            "renewal",
			DueDate:         due(30),
			Auto:            false,
		},
	}
}

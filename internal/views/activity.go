package views

import (
	"fmt"
	"time"

	"github.com/starford/naarad/internal/models"
)

// FormatActivityTime renders how long ago an activity happened.
func FormatActivityTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}

var activityStyles = map[models.ActivityType]Style{
	models.ActivityFollowUpSent:      {Icon: "✉", Class: "activity-sent"},
	models.ActivityReminderTriggered: {Icon: "⏰", Class: "activity-reminder"},
	models.ActivityClientResponded:   {Icon: "↩", Class: "activity-responded"},
	models.ActivityStatusChanged:     {Icon: "⇄", Class: "activity-status"},
}

// ActivityStyle returns the feed icon for an activity type.
func ActivityStyle(t models.ActivityType) Style {
	if st, ok := activityStyles[t]; ok {
		return st
	}
	return Style{Icon: "•", Class: "activity-other"}
}

// Package models defines the domain types shared by the dashboard, the
// backend client and the CSV importer.
package models

// Status classifies where a client is in the follow-up cycle.
type Status string

// Client statuses.
const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusOverdue   Status = "overdue"
	StatusResponded Status = "responded"
)

// Statuses lists every client status in display order.
var Statuses = []Status{StatusActive, StatusPending, StatusOverdue, StatusResponded}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Priority is the urgency of a client. The backend calls it "urgency".
type Priority string

// Client priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Cadence is the configured interval category for automated outreach.
type Cadence string

// Follow-up cadences.
const (
	CadenceDaily    Cadence = "daily"
	CadenceWeekly   Cadence = "weekly"
	CadenceBiweekly Cadence = "biweekly"
	CadenceMonthly  Cadence = "monthly"
)

// Cadences lists every cadence, shortest first.
var Cadences = []Cadence{CadenceDaily, CadenceWeekly, CadenceBiweekly, CadenceMonthly}

// Valid reports whether c is a known cadence.
func (c Cadence) Valid() bool {
	for _, v := range Cadences {
		if c == v {
			return true
		}
	}
	return false
}

// Channel is the communication channel a client prefers.
type Channel string

// Preferred channels.
const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelBoth     Channel = "both"
)

// Channels lists every channel.
var Channels = []Channel{ChannelEmail, ChannelWhatsApp, ChannelBoth}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelWhatsApp || c == ChannelBoth
}

// InteractionType is the kind of a logged message.
type InteractionType string

// Interaction types.
const (
	InteractionEmail    InteractionType = "email"
	InteractionWhatsApp InteractionType = "whatsapp"
	InteractionResponse InteractionType = "response"
)

// InteractionStatus is the delivery state of a logged message.
type InteractionStatus string

// Interaction statuses.
const (
	InteractionSent      InteractionStatus = "sent"
	InteractionDelivered InteractionStatus = "delivered"
	InteractionRead      InteractionStatus = "read"
	InteractionResponded InteractionStatus = "responded"
)

// ActivityType is the kind of event shown in the activity feed.
type ActivityType string

// Activity types.
const (
	ActivityFollowUpSent      ActivityType = "follow_up_sent"
	ActivityReminderTriggered ActivityType = "reminder_triggered"
	ActivityClientResponded   ActivityType = "client_responded"
	ActivityStatusChanged     ActivityType = "status_changed"
)

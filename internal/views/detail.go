package views

import (
	"net/url"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/naarad/internal/models"
)

// Draft is the editable copy of a client's settings. Edits touch only the
// draft until Client is called.
type Draft struct {
	base models.Client

	Name             string
	Email            string
	Phone            string
	Company          string
	Status           models.Status
	Priority         models.Priority
	FollowUpCadence  models.Cadence
	PreferredChannel models.Channel
	Notes            string
	Tags             []string
}

// NewDraft starts a draft from c.
func NewDraft(c models.Client) *Draft {
	d := &Draft{}
	d.load(c)
	return d
}

// Sync resets the draft when c is a different client or its stored settings
// changed since the draft was taken. Otherwise pending edits are kept.
func (d *Draft) Sync(c models.Client) {
	if c.ID != d.base.ID || !sameSettings(c, d.base) {
		d.load(c)
	}
}

// Reset discards every edit.
func (d *Draft) Reset() {
	d.load(d.base)
}

// Dirty reports whether the draft differs from the client it was taken from.
func (d *Draft) Dirty() bool {
	return !sameSettings(d.Client(), d.base)
}

// Apply copies the submitted form fields into the draft. Fields absent from
// form are left alone. The draft is unchanged when validation fails.
func (d *Draft) Apply(form url.Values) error {
	next := *d
	next.Tags = slices.Clone(d.Tags)
	set := func(key string, dst *string) {
		if vs, ok := form[key]; ok && len(vs) > 0 {
			*dst = strings.TrimSpace(vs[0])
		}
	}
	set("name", &next.Name)
	set("email", &next.Email)
	set("phone", &next.Phone)
	set("company", &next.Company)
	set("notes", &next.Notes)

	var status, priority, cadence, channel, tags string
	status, priority = string(next.Status), string(next.Priority)
	cadence, channel = string(next.FollowUpCadence), string(next.PreferredChannel)
	set("status", &status)
	set("priority", &priority)
	set("followUpCadence", &cadence)
	set("preferredChannel", &channel)
	next.Status = models.Status(status)
	next.Priority = models.Priority(priority)
	next.FollowUpCadence = models.Cadence(cadence)
	next.PreferredChannel = models.Channel(channel)

	if _, ok := form["tags"]; ok {
		set("tags", &tags)
		next.Tags = splitTags(tags)
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*d = next
	return nil
}

// Validate constrains the enum fields to their declared values. Empty
// values are allowed since the backend does not always send them.
func (d *Draft) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Status, validation.In(anySlice(models.Statuses)...)),
		validation.Field(&d.Priority, validation.In(anySlice(models.Priorities)...)),
		validation.Field(&d.FollowUpCadence, validation.In(anySlice(models.Cadences)...)),
		validation.Field(&d.PreferredChannel, validation.In(anySlice(models.Channels)...)),
	)
}

// Client returns the original client with the draft's settings applied.
// The automation flag is never part of the draft.
func (d *Draft) Client() models.Client {
	c := d.base
	c.Name = d.Name
	c.Email = d.Email
	c.Phone = d.Phone
	c.Company = d.Company
	c.Status = d.Status
	c.Priority = d.Priority
	c.FollowUpCadence = d.FollowUpCadence
	c.PreferredChannel = d.PreferredChannel
	c.Notes = d.Notes
	c.Tags = slices.Clone(d.Tags)
	return c
}

// TagList joins the tags for a text input.
func (d *Draft) TagList() string {
	return strings.Join(d.Tags, ", ")
}

func (d *Draft) load(c models.Client) {
	*d = Draft{
		base:             c,
		Name:             c.Name,
		Email:            c.Email,
		Phone:            c.Phone,
		Company:          c.Company,
		Status:           c.Status,
		Priority:         c.Priority,
		FollowUpCadence:  c.FollowUpCadence,
		PreferredChannel: c.PreferredChannel,
		Notes:            c.Notes,
		Tags:             slices.Clone(c.Tags),
	}
}

func sameSettings(a, b models.Client) bool {
	return a.Name == b.Name && a.Email == b.Email && a.Phone == b.Phone &&
		a.Company == b.Company && a.Status == b.Status && a.Priority == b.Priority &&
		a.FollowUpCadence == b.FollowUpCadence && a.PreferredChannel == b.PreferredChannel &&
		a.Notes == b.Notes && slices.Equal(a.Tags, b.Tags)
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// Side is where a message bubble sits in the detail timeline.
type Side string

// Bubble sides.
const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// BubbleSide puts client responses on the left and everything else on the
// right.
func BubbleSide(entryType string) Side {
	if entryType == string(models.InteractionResponse) {
		return SideLeft
	}
	return SideRight
}

// Sender labels a bubble by its side.
func Sender(entryType string) string {
	if BubbleSide(entryType) == SideLeft {
		return "Client"
	}
	return "NAARAD"
}

// TimestampLayout is the detail timeline format: month, day, hour, minute.
const TimestampLayout = "Jan 2, 03:04 PM"

// FormatTimestamp renders a message time in local time, or "" when unknown.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimestampLayout)
}

// Bubble is one rendered message in the detail timeline.
type Bubble struct {
	Side      Side
	Sender    string
	Type      string
	Content   string
	Rationale string
	Status    string
	Time      string
}

// Timeline converts history into bubbles, keeping the received order.
func Timeline(entries []models.HistoryEntry) []Bubble {
	out := make([]Bubble, len(entries))
	for i, e := range entries {
		out[i] = Bubble{
			Side:      BubbleSide(e.Type),
			Sender:    Sender(e.Type),
			Type:      e.Type,
			Content:   e.Text(),
			Rationale: e.Rationale,
			Status:    e.Status,
			Time:      FormatTimestamp(e.Time()),
		}
	}
	return out
}

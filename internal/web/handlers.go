package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/starford/naarad/internal/apperr"
	"github.com/starford/naarad/internal/backend"
	"github.com/starford/naarad/internal/csvimport"
	"github.com/starford/naarad/internal/models"
	"github.com/starford/naarad/internal/views"
)

// historyFanOut bounds concurrent history fetches for one dashboard render.
const historyFanOut = 8

func (h *handler) page(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	pd := PageData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Flash:       popFlash(w, r),
		Now:         h.now(),
		Data:        data,
	}
	h.write(w, r, status, name, pd)
}

func (h *handler) write(w http.ResponseWriter, r *http.Request, status int, name string, pd PageData) {
	if err := h.renderer.render(w, status, name, pd); err != nil {
		h.logger.Error("render page",
			slog.String("page", name),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusNotFound, "notfound.html", "Not found", notFoundData{Path: r.URL.Path})
}

type notFoundData struct {
	Path    string
	Message string
}

// --- upload ---

type uploadData struct {
	Error string
}

type uploadSuccessData struct {
	Count int
}

func (h *handler) uploadPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, "upload.html", "Upload clients", uploadData{})
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		h.uploadFailed(w, r, http.StatusBadRequest, "Could not read the uploaded file.", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.uploadFailed(w, r, http.StatusBadRequest, "Choose a CSV file to upload.", err)
		return
	}
	defer file.Close()

	clients, err := csvimport.Parse(file)
	if err != nil {
		h.uploadFailed(w, r, http.StatusBadRequest, "The file could not be parsed: "+err.Error(), err)
		return
	}
	res, err := h.svc.Upload(r.Context(), clients)
	if err != nil {
		h.uploadFailed(w, r, http.StatusBadGateway, "Upload failed. Please try again.", err)
		return
	}
	h.logger.Info("csv uploaded",
		slog.String("filename", header.Filename),
		slog.Int("count", len(clients)))
	h.uploadSucceeded(w, r, res)
}

func (h *handler) uploadSample(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.UploadSample(r.Context())
	if err != nil {
		h.uploadFailed(w, r, http.StatusBadGateway, "Upload failed. Please try again.", err)
		return
	}
	h.uploadSucceeded(w, r, res)
}

func (h *handler) uploadFailed(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	h.logger.Warn("upload failed", slog.String("error", err.Error()))
	h.page(w, r, status, "upload.html", "Upload clients", uploadData{Error: msg})
}

// uploadSucceeded shows the confirmation, which moves on to the dashboard by
// itself. The uploaded list lives in the service, so nothing is lost.
func (h *handler) uploadSucceeded(w http.ResponseWriter, r *http.Request, res *backend.UploadResult) {
	pd := PageData{
		Title:       "Upload successful",
		CurrentPath: r.URL.Path,
		Now:         h.now(),
		Refresh:     &Refresh{Delay: h.cfg.SuccessDelay, URL: "/dashboard"},
		Data:        uploadSuccessData{Count: res.Count},
	}
	h.write(w, r, http.StatusOK, "upload_success.html", pd)
}

// --- dashboard ---

type dashboardData struct {
	Query     string
	Status    views.StatusFilter
	Filters   []views.StatusFilter
	Counts    map[string]int
	Cards     []card
	Total     int
	ReturnURL string
}

type card struct {
	Client      models.Client
	Style       views.Style
	Border      string
	LastContact string
	Open        bool
	ToggleURL   string

	Followup      *views.ChatLine
	FollowupError string
	Chat          []views.ChatLine
	ChatError     string
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	status := views.ParseStatusFilter(q.Get("status"))
	open := q.Get("open")

	all := h.svc.Clients()
	filtered := views.Filter(all, query, status)
	now := h.now()

	cards := make([]card, len(filtered))
	for i, c := range filtered {
		cards[i] = card{
			Client:      c,
			Style:       views.StatusStyle(c.Status),
			Border:      views.PriorityBorder(c.Priority),
			LastContact: views.FormatLastInteraction(c.LastInteraction, now),
			Open:        c.ID == open,
			ToggleURL:   dashboardURL(query, status, views.ToggleOpen(open, c.ID)),
		}
	}
	h.loadCardHistory(r.Context(), cards)

	h.page(w, r, http.StatusOK, "dashboard.html", "Client Management", dashboardData{
		Query:     query,
		Status:    status,
		Filters:   views.StatusFilters,
		Counts:    countsByName(views.StatusCounts(all)),
		Cards:     cards,
		Total:     len(all),
		ReturnURL: dashboardURL(query, status, open),
	})
}

func countsByName(in map[views.StatusFilter]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}

// loadCardHistory fills in the follow-up of every card and the chat of the
// open one. Failures are shown on the card they belong to.
func (h *handler) loadCardHistory(ctx context.Context, cards []card) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyFanOut)
	for i := range cards {
		c := &cards[i]
		g.Go(func() error {
			entries, err := h.svc.History(gctx, c.Client.ID)
			if err != nil {
				h.logger.Warn("load history",
					slog.String("client_id", c.Client.ID),
					slog.String("error", err.Error()))
				c.FollowupError = "Could not load follow-up."
				c.ChatError = "Could not load chat history."
				return nil
			}
			if e, ok := views.SelectInitialFollowup(entries); ok {
				line := views.ChatLines([]models.HistoryEntry{e})[0]
				c.Followup = &line
			}
			if c.Open {
				c.Chat = views.ChatLines(entries)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Refresh(r.Context()); err != nil {
		h.logger.Warn("refresh clients", slog.String("error", err.Error()))
		setFlash(w, FlashMessage{Type: FlashError, Title: "Error", Description: "Failed to refresh clients."})
	} else {
		setFlash(w, FlashMessage{Type: FlashSuccess, Title: "Clients refreshed"})
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *handler) dashboardToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := safeReturn(r.FormValue("return"), "/dashboard")
	value, err := strconv.ParseBool(r.FormValue("auto"))
	if err != nil {
		setFlash(w, FlashMessage{Type: FlashError, Title: "Error", Description: "Failed to update auto-manage setting."})
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	c, err := h.svc.SetAuto(r.Context(), id, value)
	switch {
	case missingLocally(err):
		// The client vanished from the list; nothing to toggle.
	case err != nil:
		h.logger.Warn("toggle auto", slog.String("client_id", id), slog.String("error", err.Error()))
		setFlash(w, FlashMessage{Type: FlashError, Title: "Error", Description: "Failed to update auto-manage setting."})
	default:
		setFlash(w, autoFlash(value, c.Name))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// missingLocally reports a lookup miss in the client list, as opposed to a
// 404 from the backend.
func missingLocally(err error) bool {
	var se *apperr.StatusError
	return errors.Is(err, apperr.ErrNotFound) && !errors.As(err, &se)
}

func autoFlash(on bool, name string) FlashMessage {
	if on {
		return FlashMessage{Type: FlashSuccess, Title: "Auto-manage enabled",
			Description: "NAARAD will now automatically manage " + name}
	}
	return FlashMessage{Type: FlashSuccess, Title: "Auto-manage disabled",
		Description: "NAARAD will no longer automatically manage " + name}
}

func dashboardURL(query string, status views.StatusFilter, open string) string {
	v := url.Values{}
	if query != "" {
		v.Set("q", query)
	}
	if status != "" && status != views.FilterAll {
		v.Set("status", string(status))
	}
	if open != "" {
		v.Set("open", open)
	}
	if len(v) == 0 {
		return "/dashboard"
	}
	return "/dashboard?" + v.Encode()
}

// safeReturn accepts only local dashboard URLs as redirect targets.
func safeReturn(target, fallback string) string {
	if target == "/dashboard" || strings.HasPrefix(target, "/dashboard?") {
		return target
	}
	return fallback
}

// --- detail ---

type detailData struct {
	Client       models.Client
	Draft        *views.Draft
	ShowSettings bool
	SettingsErr  string
	Timeline     []views.Bubble
	HistoryError string

	Statuses   []models.Status
	Priorities []models.Priority
	Cadences   []models.Cadence
	Channels   []models.Channel
}

func (h *handler) detail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.svc.Get(id)
	if err != nil {
		h.clientNotFound(w, r)
		return
	}
	data := h.detailData(r.Context(), c)
	data.ShowSettings = r.URL.Query().Get("settings") == "1"
	h.page(w, r, http.StatusOK, "detail.html", c.Name, data)
}

func (h *handler) detailData(ctx context.Context, c models.Client) detailData {
	data := detailData{
		Client:     c,
		Draft:      views.NewDraft(c),
		Timeline:   []views.Bubble{},
		Statuses:   models.Statuses,
		Priorities: models.Priorities,
		Cadences:   models.Cadences,
		Channels:   models.Channels,
	}
	entries, err := h.svc.History(ctx, c.ID)
	if err != nil {
		h.logger.Warn("load history", slog.String("client_id", c.ID), slog.String("error", err.Error()))
		data.HistoryError = "Failed to load interaction history."
		return data
	}
	data.Timeline = views.Timeline(entries)
	return data
}

func (h *handler) clientNotFound(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusNotFound, "notfound.html", "Client not found",
		notFoundData{Path: r.URL.Path, Message: "Client not found"})
}

func (h *handler) detailToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.svc.FlipAuto(r.Context(), id)
	switch {
	case missingLocally(err):
		h.clientNotFound(w, r)
		return
	case err != nil:
		h.logger.Warn("toggle auto", slog.String("client_id", id), slog.String("error", err.Error()))
		setFlash(w, FlashMessage{Type: FlashError, Title: "Error", Description: "Failed to update auto-manage setting."})
	default:
		setFlash(w, autoFlash(c.Auto, "this client"))
	}
	http.Redirect(w, r, clientURL(id), http.StatusSeeOther)
}

func (h *handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.svc.Get(id)
	if err != nil {
		h.clientNotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	draft := views.NewDraft(c)
	if err := draft.Apply(r.PostForm); err != nil {
		data := h.detailData(r.Context(), c)
		data.ShowSettings = true
		data.SettingsErr = err.Error()
		// Show what was submitted so the user can correct it.
		data.Draft = submittedDraft(c, r.PostForm)
		h.page(w, r, http.StatusBadRequest, "detail.html", c.Name, data)
		return
	}

	if _, err := h.svc.UpdateClient(draft.Client()); err != nil {
		h.clientNotFound(w, r)
		return
	}
	setFlash(w, FlashMessage{Type: FlashSuccess, Title: "Settings saved",
		Description: "Changes apply to this session only."})
	http.Redirect(w, r, clientURL(id), http.StatusSeeOther)
}

// submittedDraft applies the free-text fields of form so a rejected save
// keeps the user's typing. Enum fields stay at their stored values.
func submittedDraft(c models.Client, form url.Values) *views.Draft {
	d := views.NewDraft(c)
	text := url.Values{}
	for _, k := range []string{"name", "email", "phone", "company", "notes", "tags"} {
		if v, ok := form[k]; ok {
			text[k] = v
		}
	}
	_ = d.Apply(text)
	return d
}

func (h *handler) reply(w http.ResponseWriter, r *http.Request) {
	h.sendMessage(w, r, "reply", h.svc.Reply, "Reply sent", "Failed to send reply.")
}

func (h *handler) logResponse(w http.ResponseWriter, r *http.Request) {
	h.sendMessage(w, r, "response", h.svc.LogResponse, "Response logged", "Failed to log response.")
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request, field string,
	send func(ctx context.Context, id, text string) error, okTitle, failText string,
) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Get(id); err != nil {
		h.clientNotFound(w, r)
		return
	}
	err := send(r.Context(), id, r.FormValue(field))
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		setFlash(w, FlashMessage{Type: FlashError, Title: "Error", Description: "Message cannot be empty."})
	case err != nil:
		h.logger.Warn("send message",
			slog.String("client_id", id),
			slog.String("kind", field),
			slog.String("error", err.Error()))
		setFlash(w, FlashMessage{Type: FlashError, Title: "Error", Description: failText})
	default:
		setFlash(w, FlashMessage{Type: FlashSuccess, Title: okTitle})
	}
	http.Redirect(w, r, clientURL(id), http.StatusSeeOther)
}

func clientURL(id string) string {
	return fmt.Sprintf("/client/%s", url.PathEscape(id))
}

// --- activity ---

type activityItem struct {
	Activity models.Activity
	Style    views.Style
	When     string
}

func (h *handler) activity(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	list := h.svc.Activities()
	items := make([]activityItem, len(list))
	for i, a := range list {
		items[i] = activityItem{
			Activity: a,
			Style:    views.ActivityStyle(a.Type),
			When:     views.FormatActivityTime(a.Timestamp, now),
		}
	}
	h.page(w, r, http.StatusOK, "activity.html", "Recent Activity", items)
}

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/starford/naarad/internal/models"
	"github.com/starford/naarad/internal/views"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PageData is passed to every page.
type PageData struct {
	Title       string
	CurrentPath string
	Flash       *FlashMessage
	Now         time.Time
	Refresh     *Refresh
	Data        any
}

// Refresh makes the page move on by itself after Delay.
type Refresh struct {
	Delay time.Duration
	URL   string
}

// Seconds formats the delay for a meta refresh tag.
func (r *Refresh) Seconds() string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", r.Delay.Seconds()), "0"), ".")
}

// layoutFiles hold the shell shared by every page.
var layoutFiles = []string{"templates/base.html", "templates/partials.html"}

// renderer holds one fully parsed template set per page. Each page defines
// its own "content" block, so every page gets its own copy of the layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer(md *views.Markdown) (*renderer, error) {
	base, err := template.New("").
		Funcs(templateFuncs(md)).
		ParseFS(templatesFS, layoutFiles...)
	if err != nil {
		return nil, fmt.Errorf("parse base templates: %w", err)
	}

	files, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list page templates: %w", err)
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if slices.Contains(layoutFiles, file) {
			continue
		}
		tmpl, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", file, err)
		}
		if _, err := tmpl.ParseFS(templatesFS, file); err != nil {
			return nil, fmt.Errorf("parse page template %s: %w", file, err)
		}
		pages[path.Base(file)] = tmpl
	}
	return &renderer{pages: pages}, nil
}

// render executes page inside the base layout.
func (r *renderer) render(w http.ResponseWriter, status int, name string, data PageData) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page template %s", name)
	}

	// Render to a buffer first so a template error does not leave a
	// half-written page behind a 200.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func templateFuncs(md *views.Markdown) template.FuncMap {
	return template.FuncMap{
		"markdown":      md.Render,
		"title":         titleCase,
		"channelLabel":  channelLabel,
		"statusStyle":   views.StatusStyle,
		"formatDate":    formatDate,
		"activityStyle": views.ActivityStyle,
		"isNav":         isNav,
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func channelLabel(c models.Channel) string {
	switch c {
	case models.ChannelEmail:
		return "✉ Email"
	case models.ChannelWhatsApp:
		return "💬 WhatsApp"
	case models.ChannelBoth:
		return "✉ 💬 Email & WhatsApp"
	default:
		return ""
	}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 2")
}

// isNav reports whether the current path belongs to the nav section.
func isNav(current, section string) bool {
	if section == "/" {
		return current == "/"
	}
	return current == section || strings.HasPrefix(current, section+"/")
}

// Package csvimport turns an uploaded client spreadsheet into the batch the
// backend expects.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/naarad/internal/apperr"
	"github.com/starford/naarad/internal/models"
)

// Defaults applied to empty cells.
const (
	DefaultStatus   = models.StatusPending
	DefaultPriority = models.PriorityMedium
	DefaultType     = "renewal"
)

// Recognised header names. Matching is exact after trimming.
const (
	colID              = "id"
	colName            = "name"
	colCompany         = "company"
	colEmail           = "email"
	colStatus          = "status"
	colUrgency         = "urgency"
	colLastInteraction = "lastInteraction"
	colType            = "type"
	colDueDate         = "dueDate"
	colDetails         = "details"
	colAuto            = "auto"
)

// Importer parses CSV uploads. The zero value is not usable; use New.
type Importer struct {
	now   func() time.Time
	newID func() string
}

// New returns an importer stamping missing dates with the current time.
func New() *Importer {
	return &Importer{now: time.Now, newID: uuid.NewString}
}

// Parse reads every data row of r with the default importer.
func Parse(r io.Reader) ([]models.Client, error) {
	return New().Parse(r)
}

// Parse reads the header row and maps each following row to a client.
// Any unparseable date rejects the whole file.
func (im *Importer) Parse(r io.Reader) ([]models.Client, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", apperr.ErrInvalidCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidCSV, err)
	}
	cols := indexHeader(header)
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no recognised columns in header", apperr.ErrInvalidCSV)
	}

	now := im.now()
	var out []models.Client
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidCSV, err)
		}
		if blank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		c, err := im.client(row{cols: cols, rec: rec}, now)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", apperr.ErrInvalidCSV, line, err)
		}
		out = append(out, c)
	}
	if out == nil {
		out = []models.Client{}
	}
	return out, nil
}

func (im *Importer) client(r row, now time.Time) (models.Client, error) {
	c := models.Client{
		ID:       r.get(colID),
		Name:     r.get(colName),
		Company:  r.get(colCompany),
		Email:    r.get(colEmail),
		Status:   models.Status(r.get(colStatus)),
		Priority: models.Priority(r.get(colUrgency)),
		Type:     r.get(colType),
		Auto:     r.get(colAuto) == "true",
	}
	if c.ID == "" {
		c.ID = im.newID()
	}
	if c.Status == "" {
		c.Status = DefaultStatus
	}
	if c.Priority == "" {
		c.Priority = DefaultPriority
	}
	if c.Type == "" {
		c.Type = DefaultType
	}
	if d := r.get(colDetails); d != "" {
		c.Details = &d
	}

	c.LastInteraction = now.UTC()
	if v := r.get(colLastInteraction); v != "" {
		t, err := models.ParseTime(v)
		if err != nil {
			return models.Client{}, fmt.Errorf("lastInteraction %q: %w", v, err)
		}
		c.LastInteraction = t.UTC()
	}
	if v := r.get(colDueDate); v != "" {
		t, err := models.ParseTime(v)
		if err != nil {
			return models.Client{}, fmt.Errorf("dueDate %q: %w", v, err)
		}
		t = t.UTC()
		c.DueDate = &t
	}
	return c, nil
}

type row struct {
	cols map[string]int
	rec  []string
}

// get returns the trimmed cell for column name, or "" when the column or
// cell is missing.
func (r row) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case colID, colName, colCompany, colEmail, colStatus, colUrgency,
			colLastInteraction, colType, colDueDate, colDetails, colAuto:
			if _, dup := cols[h]; !dup {
				cols[h] = i
			}
		}
	}
	return cols
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

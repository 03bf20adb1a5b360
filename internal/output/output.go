// Package output prints journal records for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mbrock/jview/internal/journal"
	"github.com/mbrock/jview/internal/query"
)

// Renderer writes records to an output stream.
type Renderer interface {
	Render(r journal.Record) error
}

// Formats accepted by New.
const (
	FormatShort = "short"
	FormatJSON  = "json"
)

// New returns the renderer for format. Colour applies to the short format
// only.
func New(format string, w io.Writer, color bool) (Renderer, error) {
	switch format {
	case FormatShort, "":
		return &TextRenderer{w: w, color: color, loc: time.Local}, nil
	case FormatJSON:
		return NewJSONRenderer(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s or %s)", format, FormatShort, FormatJSON)
	}
}

var (
	styleEmerg = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("196")).
			Bold(true) // white on red
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))            // yellow
	styleNotice  = lipgloss.NewStyle().Bold(true)
	styleDebug   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleSource  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true) // cyan
)

// TextRenderer prints records in journalctl's short format:
// "Mar 15 14:30:00 sshd[812]: message".
type TextRenderer struct {
	w     io.Writer
	color bool
	loc   *time.Location
}

// NewTextRenderer returns a TextRenderer writing to w in the given zone.
func NewTextRenderer(w io.Writer, color bool, loc *time.Location) *TextRenderer {
	return &TextRenderer{w: w, color: color, loc: loc}
}

func (r *TextRenderer) Render(rec journal.Record) error {
	ts := rec.Timestamp.In(r.loc).Format(time.Stamp)

	source := rec.Identifier()
	if pid := rec.Fields[journal.FieldPID]; pid != "" {
		source += "[" + pid + "]"
	}
	msg := strings.TrimRight(rec.Message, "\n")

	if r.color {
		source = styleSource.Render(source)
		if prio, ok := rec.Priority(); ok {
			msg = stylePriority(prio).Render(msg)
		}
	}
	_, err := fmt.Fprintf(r.w, "%s %s: %s\n", ts, source, msg)
	return err
}

func stylePriority(prio int) lipgloss.Style {
	name, _ := query.PriorityName(prio)
	switch name {
	case "emerg", "alert", "crit":
		return styleEmerg
	case "err":
		return styleErr
	case "warning":
		return styleWarning
	case "notice":
		return styleNotice
	case "debug":
		return styleDebug
	default:
		return lipgloss.NewStyle()
	}
}

// JSONRenderer prints each record as one JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer writing JSON lines to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

type jsonRecord struct {
	Cursor    string            `json:"cursor,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func (r *JSONRenderer) Render(rec journal.Record) error {
	return r.enc.Encode(jsonRecord{
		Cursor:    rec.Cursor,
		Timestamp: rec.Timestamp,
		Message:   rec.Message,
		Fields:    rec.Fields,
	})
}

// Package render turns command results into markup for the console and into
// terminal tables for the CLI.
package render

import (
	"html"
	"strconv"
	"strings"

	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/value"
)

const (
	tableHeader = "<table><tr><th>Name</th><th>Value</th></tr>"
	tableFooter = "</table>"

	// sequenceSeparator joins the elements of a sequence inside one cell.
	sequenceSeparator = "<br>"

	// Retrieving is shown while a request has not completed yet.
	Retrieving = "<i>&lt;retrieving...&gt;</i>"
)

// HTML renders values as nested two-column tables. The zero value is ready
// to use and writes keys and scalar text verbatim.
type HTML struct {
	escape bool
}

// Option configures an HTML renderer.
type Option func(*HTML)

// WithEscaping HTML-escapes keys and textual values. Without it, markup in
// device responses reaches the page unchanged.
func WithEscaping() Option {
	return func(h *HTML) {
		h.escape = true
	}
}

// NewHTML returns an HTML renderer.
func NewHTML(opts ...Option) *HTML {
	h := &HTML{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Escaping reports whether the renderer escapes text.
func (h *HTML) Escaping() bool {
	return h.escape
}

// Render returns the markup for v. Rendering is pure: the same value always
// yields the same markup.
//
// A mapping becomes a table with one row per member in document order. A
// sequence becomes a table keyed by element index. Any other value renders
// as its text.
func (h *HTML) Render(v value.Value) string {
	var b strings.Builder
	switch t := v.(type) {
	case *value.Mapping:
		h.writeMapping(&b, t)
	case value.Sequence:
		h.writeSequenceTable(&b, t)
	case nil:
		b.WriteString(h.text(value.Null().Text()))
	default:
		b.WriteString(h.text(t.Text()))
	}
	return b.String()
}

// RenderResult renders the "results" member of payload when it has one,
// and the whole payload otherwise.
func (h *HTML) RenderResult(payload value.Value) string {
	if res, ok := value.Lookup(payload, osc.FieldResults); ok {
		return h.Render(res)
	}
	return h.Render(payload)
}

// View is the content of a result cell for one notification of a request:
// a placeholder while pending, the status code when no body arrived, and the
// rendered result otherwise.
func (h *HTML) View(pending bool, status int, body value.Value) string {
	switch {
	case pending:
		return Retrieving
	case body == nil:
		return "status:" + strconv.Itoa(status)
	default:
		return h.RenderResult(body)
	}
}

func (h *HTML) writeMapping(b *strings.Builder, m *value.Mapping) {
	b.WriteString(tableHeader)
	for _, mb := range m.Members() {
		h.writeRow(b, mb.Key, mb.Value)
	}
	b.WriteString(tableFooter)
}

func (h *HTML) writeSequenceTable(b *strings.Builder, s value.Sequence) {
	b.WriteString(tableHeader)
	for i, el := range s {
		h.writeRow(b, strconv.Itoa(i), el)
	}
	b.WriteString(tableFooter)
}

func (h *HTML) writeRow(b *strings.Builder, key string, v value.Value) {
	b.WriteString("<tr><td>")
	b.WriteString(h.text(key))
	b.WriteString("</td>")

	switch t := v.(type) {
	case value.Sequence:
		// Elements are never rendered as tables.
		parts := make([]string, len(t))
		for i, el := range t {
			parts[i] = h.text(value.ElementText(el))
		}
		b.WriteString("<td>")
		b.WriteString(strings.Join(parts, sequenceSeparator))
		b.WriteString("</td>")
	case *value.Mapping:
		b.WriteString("<td class='object'>")
		h.writeMapping(b, t)
		b.WriteString("</td>")
	case nil:
		b.WriteString("<td>")
		b.WriteString(value.Null().Text())
		b.WriteString("</td>")
	default:
		b.WriteString("<td>")
		b.WriteString(h.text(t.Text()))
		b.WriteString("</td>")
	}

	b.WriteString("</tr>")
}

func (h *HTML) text(s string) string {
	if !h.escape {
		return s
	}
	return html.EscapeString(s)
}

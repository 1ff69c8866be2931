package render

import (
	"strconv"
	"strings"

	"github.com/gosuri/uitable"

	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/value"
)

// DefaultMaxColWidth bounds the value column of a terminal table.
const DefaultMaxColWidth = 80

// Text renders values as a two-column terminal table. Nested mappings are
// flattened into rows whose names are dotted key paths.
type Text struct {
	MaxColWidth uint
	Wrap        bool
}

// NewText returns a Text renderer with wrapping enabled.
func NewText() *Text {
	return &Text{MaxColWidth: DefaultMaxColWidth, Wrap: true}
}

// Render returns the table for v.
func (t *Text) Render(v value.Value) string {
	table := uitable.New()
	table.MaxColWidth = t.MaxColWidth
	table.Wrap = t.Wrap
	table.AddRow("NAME", "VALUE")

	switch c := v.(type) {
	case *value.Mapping, value.Sequence:
		t.addRows(table, "", c)
	case nil:
		table.AddRow("", value.Null().Text())
	default:
		table.AddRow("", c.Text())
	}
	return table.String()
}

// RenderResult renders the "results" member of payload when it has one,
// and the whole payload otherwise.
func (t *Text) RenderResult(payload value.Value) string {
	if res, ok := value.Lookup(payload, osc.FieldResults); ok {
		return t.Render(res)
	}
	return t.Render(payload)
}

func (t *Text) addRows(table *uitable.Table, prefix string, v value.Value) {
	switch c := v.(type) {
	case *value.Mapping:
		if c.Len() == 0 && prefix != "" {
			table.AddRow(prefix, "{}")
			return
		}
		for _, mb := range c.Members() {
			t.addCell(table, join(prefix, mb.Key), mb.Value)
		}
	case value.Sequence:
		for i, el := range c {
			t.addCell(table, join(prefix, strconv.Itoa(i)), el)
		}
	}
}

func (t *Text) addCell(table *uitable.Table, name string, v value.Value) {
	switch c := v.(type) {
	case *value.Mapping:
		t.addRows(table, name, c)
	case value.Sequence:
		parts := make([]string, len(c))
		for i, el := range c {
			parts[i] = value.ElementText(el)
		}
		table.AddRow(name, strings.Join(parts, ", "))
	case nil:
		table.AddRow(name, value.Null().Text())
	default:
		table.AddRow(name, c.Text())
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

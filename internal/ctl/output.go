package ctl

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/autopeer-io/oscpeer/pkg/options"
	"github.com/autopeer-io/oscpeer/pkg/osc/command"
	"github.com/autopeer-io/oscpeer/pkg/osc/render"
	"github.com/autopeer-io/oscpeer/pkg/osc/value"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputHTML  = "html"
)

// Outputs lists the accepted output formats.
var Outputs = []string{OutputTable, OutputJSON, OutputHTML}

// Printer writes replies in one output format.
type Printer struct {
	out    io.Writer
	format string
	text   *render.Text
	html   *render.HTML
}

// NewPrinter returns a printer for format. ropts may be nil.
func NewPrinter(out io.Writer, format string, ropts *options.RenderOptions) (*Printer, error) {
	if format == "" {
		format = OutputTable
	}
	switch format {
	case OutputTable, OutputJSON, OutputHTML:
	default:
		return nil, fmt.Errorf("unknown output format %q, must be one of %v", format, Outputs)
	}

	p := &Printer{out: out, format: format, text: render.NewText()}
	var hopts []render.Option
	if ropts != nil {
		if ropts.MaxColWidth > 0 {
			p.text.MaxColWidth = ropts.MaxColWidth
		}
		if ropts.Escape {
			hopts = append(hopts, render.WithEscaping())
		}
	}
	p.html = render.NewHTML(hopts...)
	return p, nil
}

type jsonReply struct {
	Status int         `json:"status"`
	Body   value.Value `json:"body"`
}

// Print writes the terminal reply rep.
func (p *Printer) Print(rep command.Reply) error {
	var err error
	switch p.format {
	case OutputJSON:
		var data []byte
		data, err = json.MarshalIndent(jsonReply{Status: rep.StatusCode, Body: rep.Body}, "", "  ")
		if err == nil {
			_, err = fmt.Fprintln(p.out, string(data))
		}
	case OutputHTML:
		_, err = fmt.Fprintln(p.out, p.html.View(false, rep.StatusCode, rep.Body))
	default:
		if rep.Failed() {
			_, err = fmt.Fprintf(p.out, "status:%d\n", rep.StatusCode)
			break
		}
		_, err = fmt.Fprintln(p.out, p.text.RenderResult(rep.Body))
	}
	return err
}

// PrintValue writes v on its own, outside any reply.
func (p *Printer) PrintValue(v value.Value) error {
	var err error
	switch p.format {
	case OutputJSON:
		var data []byte
		data, err = json.MarshalIndent(v, "", "  ")
		if err == nil {
			_, err = fmt.Fprintln(p.out, string(data))
		}
	case OutputHTML:
		_, err = fmt.Fprintln(p.out, p.html.Render(v))
	default:
		_, err = fmt.Fprintln(p.out, p.text.Render(v))
	}
	return err
}

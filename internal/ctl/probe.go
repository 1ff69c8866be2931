package ctl

import (
	"context"
	"fmt"
	"strings"

	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/value"
)

// ProbeReport is the outcome of probing camera options one by one.
type ProbeReport struct {
	// Supported maps each supported option to its current value, in probe order.
	Supported   *value.Mapping
	Unsupported []string
	Total       int
}

// Summary is the closing line of a probe.
func (r *ProbeReport) Summary() string {
	return fmt.Sprintf("Total %d supported and %d unsupported of %d options",
		r.Supported.Len(), len(r.Unsupported), r.Total)
}

// Probe asks for each option on its own so that one unsupported option
// cannot hide the others. An empty names probes every known option.
func (c *Client) Probe(ctx context.Context, names []string) (*ProbeReport, error) {
	if len(names) == 0 {
		names = osc.OptionNames
	}

	report := &ProbeReport{Supported: value.NewMapping(), Total: len(names)}
	for _, name := range names {
		c.logger.Info("Probing option", "option", name)
		rep, err := c.runner.Await(ctx, osc.CommandGetOptions, map[string]any{
			"optionNames": []string{name},
		})
		if err != nil {
			return nil, err
		}

		v, ok := optionValue(rep.Body, name)
		if !ok {
			c.logger.Warn("Option is not supported", "option", name, "status", rep.StatusCode)
			report.Unsupported = append(report.Unsupported, name)
			// Some cameras stop answering on a connection that carried an
			// unsupported option.
			c.transport.CloseIdleConnections()
			continue
		}
		report.Supported.Set(name, v)
	}
	return report, nil
}

// PrintProbe writes the supported options, the unsupported names and the summary.
func (c *Client) PrintProbe(r *ProbeReport) error {
	if err := c.printer.PrintValue(r.Supported); err != nil {
		return err
	}
	out := c.printer.out
	if len(r.Unsupported) > 0 {
		if _, err := fmt.Fprintf(out, "Unsupported options: %s\n", strings.Join(r.Unsupported, ", ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(out, r.Summary())
	return err
}

// optionValue extracts results.options[name] from a getOptions reply.
func optionValue(body value.Value, name string) (value.Value, bool) {
	results, ok := value.Lookup(body, osc.FieldResults)
	if !ok {
		return nil, false
	}
	opts, ok := value.Lookup(results, "options")
	if !ok {
		return nil, false
	}
	v, ok := value.Lookup(opts, name)
	if !ok {
		return nil, false
	}
	if s, isScalar := v.(value.Scalar); isScalar && s.IsNull() {
		return nil, false
	}
	return v, true
}

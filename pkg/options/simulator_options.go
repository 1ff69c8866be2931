package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SimulatorOptions)(nil)

// SimulatorOptions configures the fake camera.
type SimulatorOptions struct {
	// Steps is the number of status polls a picture stays in progress.
	Steps int `json:"steps" mapstructure:"steps"`

	// Manufacturer and Model are reported by /osc/info.
	Manufacturer string `json:"manufacturer" mapstructure:"manufacturer"`
	Model        string `json:"model" mapstructure:"model"`

	// RequireXSRF rejects requests that lack the X-XSRF-Protected header.
	RequireXSRF bool `json:"require-xsrf" mapstructure:"require-xsrf"`
}

// NewSimulatorOptions creates a SimulatorOptions object with default parameters.
func NewSimulatorOptions() *SimulatorOptions {
	return &SimulatorOptions{
		Steps:        3,
		Manufacturer: "Autopeer",
		Model:        "oscpeer-sim",
		RequireXSRF:  true,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *SimulatorOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.Steps < 0 {
		errors = append(errors, fmt.Errorf("--sim.steps must not be negative, got %d", o.Steps))
	}

	return errors
}

// AddFlags adds flags for SimulatorOptions to the specified FlagSet.
func (o *SimulatorOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.Steps, "sim.steps", o.Steps, "Number of status polls a picture stays in progress.")
	fs.StringVar(&o.Manufacturer, "sim.manufacturer", o.Manufacturer, "Manufacturer reported by /osc/info.")
	fs.StringVar(&o.Model, "sim.model", o.Model, "Model reported by /osc/info.")
	fs.BoolVar(&o.RequireXSRF, "sim.require-xsrf", o.RequireXSRF, "Reject requests without the X-XSRF-Protected header.")
}

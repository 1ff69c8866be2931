package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*OSCOptions)(nil)

// OSCOptions describes how to reach the camera.
type OSCOptions struct {
	// Host is the camera's base URL. Endpoint paths are appended to it.
	Host string `json:"host" mapstructure:"host"`

	// PollingInterval is the delay between command status polls.
	PollingInterval time.Duration `json:"polling-interval" mapstructure:"polling-interval"`
}

// NewOSCOptions creates an OSCOptions object with default parameters.
func NewOSCOptions() *OSCOptions {
	return &OSCOptions{
		Host:            "http://192.168.42.1",
		PollingInterval: time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *OSCOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	u, err := url.Parse(o.Host)
	switch {
	case err != nil:
		errors = append(errors, fmt.Errorf("--osc.host: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errors = append(errors, fmt.Errorf("--osc.host must be an http or https URL, got %q", o.Host))
	case u.Host == "":
		errors = append(errors, fmt.Errorf("--osc.host %q has no host", o.Host))
	}

	if o.PollingInterval <= 0 {
		errors = append(errors, fmt.Errorf("--osc.polling-interval must be positive, got %s", o.PollingInterval))
	}

	return errors
}

// AddFlags adds flags for OSCOptions to the specified FlagSet.
func (o *OSCOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Host, "osc.host", o.Host, "Base URL of the camera, e.g. http://192.168.42.1.")
	fs.DurationVar(&o.PollingInterval, "osc.polling-interval", o.PollingInterval, "Delay between command status polls.")
}

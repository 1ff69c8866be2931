package options

import (
	"fmt"
	"slices"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/oscpeer/internal/ctl"
	"github.com/autopeer-io/oscpeer/pkg/app"
	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/options"
)

type CtlOptions struct {
	OSCOptions    *options.OSCOptions    `json:"osc" mapstructure:"osc"`
	RenderOptions *options.RenderOptions `json:"render" mapstructure:"render"`
	Log           *log.Options           `json:"log" mapstructure:"log"`

	Output  string        `json:"output" mapstructure:"output"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

var (
	_ app.NamedFlagSetOptions = (*CtlOptions)(nil)
	_ app.LogOptionsProvider  = (*CtlOptions)(nil)
)

func NewCtlOptions() *CtlOptions {
	o := &CtlOptions{
		OSCOptions:    options.NewOSCOptions(),
		RenderOptions: options.NewRenderOptions(),
		Log:           log.NewOptions(),
		Output:        ctl.OutputTable,
	}
	// Terminal output is not a page; keep device text as is.
	o.RenderOptions.Escape = false
	o.Log.Level = "warn"

	return o
}

func (o *CtlOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("ctl")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format, one of %v.", ctl.Outputs))
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Give up after this long. Zero waits for the camera forever.")
	o.OSCOptions.AddFlags(fss.FlagSet("osc"))
	o.RenderOptions.AddFlags(fss.FlagSet("render"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *CtlOptions) Complete() error {
	return nil
}

func (o *CtlOptions) Validate() error {
	errs := []error{}
	if !slices.Contains(ctl.Outputs, o.Output) {
		errs = append(errs, fmt.Errorf("--output must be one of %v, got %q", ctl.Outputs, o.Output))
	}
	if o.Timeout < 0 {
		errs = append(errs, fmt.Errorf("--timeout must not be negative, got %s", o.Timeout))
	}
	errs = append(errs, o.OSCOptions.Validate()...)
	errs = append(errs, o.RenderOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *CtlOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *CtlOptions) Config() (*ctl.Config, error) {
	return &ctl.Config{
		OSCOptions:    o.OSCOptions,
		RenderOptions: o.RenderOptions,
		Output:        o.Output,
		Timeout:       o.Timeout,
	}, nil
}

package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/oscpeer/internal/simulator"
	"github.com/autopeer-io/oscpeer/pkg/app"
	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/options"
)

// defaultAddr keeps the simulator off the console's default port.
const defaultAddr = "127.0.0.1:8081"

type SimOptions struct {
	HttpOptions      *options.HttpOptions      `json:"http" mapstructure:"http"`
	SimulatorOptions *options.SimulatorOptions `json:"sim" mapstructure:"sim"`
	Log              *log.Options              `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*SimOptions)(nil)
	_ app.LogOptionsProvider  = (*SimOptions)(nil)
)

func NewSimOptions() *SimOptions {
	o := &SimOptions{
		HttpOptions:      options.NewHttpOptions(),
		SimulatorOptions: options.NewSimulatorOptions(),
		Log:              log.NewOptions(),
	}
	o.HttpOptions.Addr = defaultAddr

	return o
}

func (o *SimOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.SimulatorOptions.AddFlags(fss.FlagSet("sim"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *SimOptions) Complete() error {
	return nil
}

func (o *SimOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.SimulatorOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *SimOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *SimOptions) Config() (*simulator.Config, error) {
	return &simulator.Config{
		HttpOptions:      o.HttpOptions,
		SimulatorOptions: o.SimulatorOptions,
	}, nil
}

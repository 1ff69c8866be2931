package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/oscpeer/internal/console"
	"github.com/autopeer-io/oscpeer/pkg/app"
	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/options"
)

type ConsoleOptions struct {
	OSCOptions    *options.OSCOptions    `json:"osc" mapstructure:"osc"`
	HttpOptions   *options.HttpOptions   `json:"http" mapstructure:"http"`
	MqttOptions   *options.MqttOptions   `json:"mqtt" mapstructure:"mqtt"`
	RenderOptions *options.RenderOptions `json:"render" mapstructure:"render"`
	Log           *log.Options           `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*ConsoleOptions)(nil)
	_ app.LogOptionsProvider  = (*ConsoleOptions)(nil)
)

func NewConsoleOptions() *ConsoleOptions {
	o := &ConsoleOptions{
		OSCOptions:    options.NewOSCOptions(),
		HttpOptions:   options.NewHttpOptions(),
		MqttOptions:   options.NewMqttOptions(),
		RenderOptions: options.NewRenderOptions(),
		Log:           log.NewOptions(),
	}

	return o
}

func (o *ConsoleOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.OSCOptions.AddFlags(fss.FlagSet("osc"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.RenderOptions.AddFlags(fss.FlagSet("render"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ConsoleOptions) Complete() error {
	return nil
}

func (o *ConsoleOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.OSCOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.RenderOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *ConsoleOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *ConsoleOptions) Config() (*console.Config, error) {
	return &console.Config{
		OSCOptions:    o.OSCOptions,
		HttpOptions:   o.HttpOptions,
		MqttOptions:   o.MqttOptions,
		RenderOptions: o.RenderOptions,
	}, nil
}

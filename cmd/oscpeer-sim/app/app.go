package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/oscpeer/cmd/oscpeer-sim/app/options"
	"github.com/autopeer-io/oscpeer/pkg/app"
)

const (
	commandName = "oscpeer-sim"
	commandDesc = `The oscpeer simulator is a fake Open Spherical Camera. It serves the OSC
HTTP API, keeps option values in memory and stores pictures that stay in
progress for --sim.steps status polls, so the console and ctl can be used
without a device.`
)

func NewApp() *app.App {
	opts := options.NewSimOptions()
	application := app.NewApp(
		commandName,
		"Launch a simulated Open Spherical Camera",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.SimOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		return cfg.NewSimulator().Run(ctx)
	}
}

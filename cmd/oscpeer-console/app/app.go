package app

import (
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/oscpeer/cmd/oscpeer-console/app/options"
	"github.com/autopeer-io/oscpeer/internal/console"
	"github.com/autopeer-io/oscpeer/pkg/app"
	"github.com/autopeer-io/oscpeer/pkg/log"
	pkgoptions "github.com/autopeer-io/oscpeer/pkg/options"
)

const (
	commandName = "oscpeer-console"
	commandDesc = `The oscpeer console serves a web page for an Open Spherical Camera:
camera info, state and update checks, and a form to run any camera command.
Every request and command result is also available as JSON under /api, and
commands can be received over MQTT when --mqtt.enabled is set.

Changes to the osc section of the configuration file switch the console to
the new camera without a restart.`
)

func NewApp() *app.App {
	opts := options.NewConsoleOptions()
	var running atomic.Pointer[console.Console]

	application := app.NewApp(
		commandName,
		"Launch an Open Spherical Camera console",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts, &running)),
		app.WithWatchConfig(reload(&running)),
	)
	return application
}

func run(opts *options.ConsoleOptions, running *atomic.Pointer[console.Console]) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		c, err := cfg.NewConsole()
		if err != nil {
			return fmt.Errorf("failed to create console: %w", err)
		}
		running.Store(c)
		defer running.Store(nil)

		return c.Run(ctx)
	}
}

// reload applies the camera settings of a changed configuration file.
func reload(running *atomic.Pointer[console.Console]) app.ConfigChangeFunc {
	return func(_ fsnotify.Event, v *viper.Viper) {
		c := running.Load()
		if c == nil {
			return
		}

		o := pkgoptions.NewOSCOptions()
		if err := v.UnmarshalKey("osc", o); err != nil {
			log.Error(err, "Failed to read camera settings from the changed configuration")
			return
		}
		if err := c.Reload(o); err != nil {
			log.Error(err, "Keeping the previous camera settings")
		}
	}
}

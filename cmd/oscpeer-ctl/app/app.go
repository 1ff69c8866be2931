package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/oscpeer/cmd/oscpeer-ctl/app/options"
	"github.com/autopeer-io/oscpeer/internal/ctl"
	"github.com/autopeer-io/oscpeer/pkg/app"
	"github.com/autopeer-io/oscpeer/pkg/osc"
)

const (
	commandName = "oscpeer-ctl"
	commandDesc = `oscpeer-ctl sends single requests to an Open Spherical Camera and prints
the result as a table, JSON or HTML. Commands that keep running on the
camera are polled until they finish.`
)

// action is the body of a subcommand, run while the event loop is serving.
type action func(ctx context.Context, c *ctl.Client, args []string) error

func NewApp() *app.App {
	opts := options.NewCtlOptions()
	application := app.NewApp(
		commandName,
		"Control an Open Spherical Camera from the command line",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithCommands(
			fetchCommand(opts, "info", "Print camera information", osc.InfoPath),
			fetchCommand(opts, "state", "Print camera state", osc.StatePath),
			fetchCommand(opts, "check-updates", "Print the state fingerprint", osc.CheckForUpdatesPath),
			execCommand(opts),
			optionsCommand(opts),
		),
	)
	return application
}

func fetchCommand(opts *options.CtlOptions, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: runAction(opts, func(ctx context.Context, c *ctl.Client, _ []string) error {
			return c.Fetch(ctx, path)
		}),
	}
}

func execCommand(opts *options.CtlOptions) *cobra.Command {
	var (
		object string
		pairs  []string
	)
	cmd := &cobra.Command{
		Use:   "exec NAME",
		Short: "Run a camera command and print its result",
		Example: `  oscpeer-ctl exec camera.takePicture
  oscpeer-ctl exec camera.getOptions --params '{"optionNames":["iso","isoSupport"]}'
  oscpeer-ctl exec camera.listFiles --param entryCount=10 --param fileType=image`,
		Args: cobra.ExactArgs(1),
		RunE: runAction(opts, func(ctx context.Context, c *ctl.Client, args []string) error {
			params, err := ctl.ParseParameters(object, pairs)
			if err != nil {
				return err
			}
			return c.Execute(ctx, args[0], params)
		}),
	}
	cmd.Flags().StringVar(&object, "params", "", "Command parameters as a JSON object.")
	cmd.Flags().StringArrayVar(&pairs, "param", nil, "A command parameter as key=value. Values are JSON when they parse as JSON. Repeatable.")
	return cmd
}

func optionsCommand(opts *options.CtlOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Inspect camera options",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "probe [NAME...]",
		Short: "Ask for each option separately and report which ones the camera supports",
		Long: `probe runs camera.getOptions once per option, so a single unsupported
option cannot fail the whole request. Without names, every option known to
the OSC reference is probed.`,
		RunE: runAction(opts, func(ctx context.Context, c *ctl.Client, args []string) error {
			report, err := c.Probe(ctx, args)
			if err != nil {
				return err
			}
			return c.PrintProbe(report)
		}),
	})
	return cmd
}

func runAction(opts *options.CtlOptions, fn action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		c, err := cfg.NewClient(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return c.Run(ctx, func(ctx context.Context) error {
			return fn(ctx, c, args)
		})
	}
}

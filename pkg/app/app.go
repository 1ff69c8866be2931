// Package app builds the cobra root command shared by the oscpeer binaries:
// named flag sets, an optional config file with environment overrides,
// option validation and logger setup.
package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"

	"github.com/autopeer-io/oscpeer/pkg/log"
)

// EnvPrefix prefixes the environment variables overriding flags, e.g.
// OSCPEER_OSC_HOST for --osc.host.
const EnvPrefix = "OSCPEER"

const configFlagName = "config"

// RunFunc runs the application once its options are loaded and valid.
type RunFunc func() error

// ConfigChangeFunc is called after the config file changes on disk. v holds
// the reloaded configuration.
type ConfigChangeFunc func(e fsnotify.Event, v *viper.Viper)

// NamedFlagSetOptions is implemented by the options of every binary.
type NamedFlagSetOptions interface {
	// Flags returns the option groups' flags, one named set per group.
	Flags() cliflag.NamedFlagSets

	// Complete fills in fields derived from other fields.
	Complete() error

	// Validate returns the aggregated validation errors.
	Validate() error
}

// LogOptionsProvider is implemented by options that configure the global logger.
type LogOptionsProvider interface {
	LogOptions() *log.Options
}

// App is a command-line application.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	args        cobra.PositionalArgs
	commands    []*cobra.Command
	onChange    ConfigChangeFunc
	silence     bool

	viper      *viper.Viper
	configFile string
	cmd        *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithOptions sets the options loaded from flags, config and environment.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc sets the function run by the root command.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithDescription sets the long description of the root command.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithValidArgs sets a custom positional argument validator.
func WithValidArgs(args cobra.PositionalArgs) Option {
	return func(a *App) {
		a.args = args
	}
}

// WithCommands adds subcommands to the root command. Subcommands see the
// loaded options through the root's persistent pre-run.
func WithCommands(cmds ...*cobra.Command) Option {
	return func(a *App) {
		a.commands = append(a.commands, cmds...)
	}
}

// WithWatchConfig watches the config file and calls fn after each change.
func WithWatchConfig(fn ConfigChangeFunc) Option {
	return func(a *App) {
		a.onChange = fn
	}
}

// WithSilence keeps cobra from printing usage and errors; the caller reports them.
func WithSilence() Option {
	return func(a *App) {
		a.silence = true
	}
}

// NewApp creates a new application.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
		viper:     viper.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.buildCommand()
	return a
}

// Command returns the root cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Viper returns the configuration source backing the options.
func (a *App) Viper() *viper.Viper {
	return a.viper
}

// Run executes the root command with os.Args.
func (a *App) Run() error {
	return a.cmd.Execute()
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: a.silence,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	fs := cmd.PersistentFlags()
	fs.StringVarP(&a.configFile, configFlagName, "c", "",
		fmt.Sprintf("Read configuration from the specified file. Supports JSON, TOML, YAML, HCL, INI or properties. Defaults to $HOME/.oscpeer/%s.yaml when present.", a.name))

	var namedfs cliflag.NamedFlagSets
	if a.options != nil {
		namedfs = a.options.Flags()
	}
	globalflag.AddGlobalFlags(namedfs.FlagSet("global"), cmd.Name())
	for _, f := range namedfs.FlagSets {
		fs.AddFlagSet(f)
	}

	cliflag.SetUsageAndHelpFunc(cmd, namedfs, 0)

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.load(cmd)
	}
	if a.runFunc != nil {
		cmd.RunE = func(*cobra.Command, []string) error {
			return a.runFunc()
		}
	}
	cmd.AddCommand(a.commands...)

	a.cmd = cmd
}

// load reads the config file and environment, fills the options, validates
// them and initializes the global logger.
func (a *App) load(cmd *cobra.Command) error {
	v := a.viper

	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.oscpeer")
		}
		v.AddConfigPath("/etc/oscpeer")
		v.SetConfigName(a.name)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read configuration file %q: %w", a.configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if a.options == nil {
		return nil
	}

	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to load options: %w", err)
	}
	if err := a.options.Complete(); err != nil {
		return fmt.Errorf("failed to complete options: %w", err)
	}
	if err := a.options.Validate(); err != nil {
		return err
	}

	if p, ok := a.options.(LogOptionsProvider); ok {
		log.Init(p.LogOptions())
	}
	log.Debug("Configuration loaded", "app", a.name, "config", v.ConfigFileUsed())

	if a.onChange != nil && v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Configuration file changed", "file", e.Name, "op", e.Op.String())
			a.onChange(e, v)
		})
		v.WatchConfig()
	}
	return nil
}

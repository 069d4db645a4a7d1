// Copyright 2025 The Autopeer Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package app builds cobra commands whose flags come from named option groups
// and whose values may be overridden by a YAML config file.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
	"k8s.io/component-base/term"

	"github.com/autopeer-io/rover/pkg/log"
)

// NamedFlagSetOptions is implemented by the options struct of a command.
type NamedFlagSetOptions interface {
	// Flags returns the option groups keyed by section name.
	Flags() cliflag.NamedFlagSets

	// Complete fills derived fields once flags and config are parsed.
	Complete() error

	// Validate reports every invalid option at once.
	Validate() error
}

// RunFunc is the body of the command, called after options are validated.
type RunFunc func() error

// Option configures an App.
type Option func(*App)

// App is a command line application.
type App struct {
	name        string
	short       string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	validArgs   cobra.PositionalArgs
	watch       func(v *viper.Viper)

	v   *viper.Viper
	cmd *cobra.Command
}

// WithDescription sets the long description of the command.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions binds the option groups of the command.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the command body.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.validArgs = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithConfigWatch re-reads the config file on change and passes the fresh
// values to fn. fn runs on the watcher goroutine.
func WithConfigWatch(fn func(v *viper.Viper)) Option {
	return func(a *App) { a.watch = fn }
}

// NewApp creates an App and its cobra command.
func NewApp(name, short string, opts ...Option) *App {
	a := &App{name: name, short: short, v: viper.New()}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command and exits the process on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.short,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.validArgs,
		RunE:          a.runCommand,
	}

	var configFile string
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file; flags override its values.")

	if a.options != nil {
		namedfs := a.options.Flags()
		globalflag.AddGlobalFlags(namedfs.FlagSet("global"), cmd.Name())
		for _, f := range namedfs.FlagSets {
			cmd.Flags().AddFlagSet(f)
		}

		cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
		cliflag.SetUsageAndHelpFunc(cmd, namedfs, cols)
	}

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, args []string) error {
	if a.options != nil {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
		if err := a.options.Complete(); err != nil {
			return fmt.Errorf("failed to complete options: %w", err)
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.runFunc == nil {
		return nil
	}
	defer log.Sync()
	return a.runFunc()
}

// loadConfig overlays the config file, then explicitly set flags, onto the options.
func (a *App) loadConfig(cmd *cobra.Command) error {
	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return nil
	}

	a.v.SetConfigFile(configFile)
	a.v.SetEnvPrefix(strings.ReplaceAll(strings.ToUpper(a.name), "-", "_"))
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %q: %w", configFile, err)
	}
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := a.v.Unmarshal(a.options, viper.DecodeHook(decodeHook())); err != nil {
		return fmt.Errorf("failed to decode config file %q: %w", configFile, err)
	}

	if a.watch != nil {
		a.v.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Config file changed", "file", e.Name, "op", e.Op.String())
			a.watch(a.v)
		})
		a.v.WatchConfig()
	}

	return nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

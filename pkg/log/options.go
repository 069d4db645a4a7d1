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

package log

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
)

// Options configure the zap logger behind the package-level functions.
type Options struct {
	// Name is prepended to every logger name.
	Name string `json:"name,omitempty" mapstructure:"name"`

	// Level is one of debug, info, warn or error.
	Level string `json:"level,omitempty" mapstructure:"level"`

	// Format is console or json.
	Format      string `json:"format,omitempty" mapstructure:"format"`
	EnableColor bool   `json:"enable-color,omitempty" mapstructure:"enable-color"`

	DisableCaller bool `json:"disable-caller,omitempty" mapstructure:"disable-caller"`
	CallerSkip    int  `json:"caller-skip,omitempty" mapstructure:"caller-skip"`

	// OutputPaths accepts stdout, stderr, file paths and registered zap sink URLs.
	OutputPaths []string `json:"output-paths,omitempty" mapstructure:"output-paths"`

	// File outputs rotate once they reach MaxSizeMB. Zero keeps plain files.
	MaxSizeMB  int `json:"max-size-mb,omitempty" mapstructure:"max-size-mb"`
	MaxBackups int `json:"max-backups,omitempty" mapstructure:"max-backups"`
	MaxAgeDays int `json:"max-age-days,omitempty" mapstructure:"max-age-days"`
}

// NewOptions returns coloured console output on stdout at info level.
func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "console",
		EnableColor: true,
		CallerSkip:  1, // the zapLogger method
		OutputPaths: []string{"stdout"},
		MaxBackups:  5,
		MaxAgeDays:  7,
	}
}

func (o *Options) Validate() []error {
	var errs []error

	if _, err := zapcore.ParseLevel(o.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q is not a valid level", o.Level))
	}
	if o.Format != "console" && o.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", o.Format))
	}
	if o.MaxSizeMB < 0 || o.MaxBackups < 0 || o.MaxAgeDays < 0 {
		errs = append(errs, errors.New("log rotation settings must not be negative"))
	}

	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Name, "log.name", o.Name, "Name prepended to every logger.")
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum level: debug, info, warn or error. Reloaded from the config file.")
	fs.StringVar(&o.Format, "log.format", o.Format, "Output format: console or json.")
	fs.BoolVar(&o.EnableColor, "log.enable-color", o.EnableColor, "Colour the level in console output.")
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, "Omit the file:line of the caller.")
	fs.IntVar(&o.CallerSkip, "log.caller-skip", o.CallerSkip, "Caller frames to skip.")
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, "Outputs, e.g. stdout,/var/log/rover.log.")

	fs.IntVar(&o.MaxSizeMB, "log.max-size-mb", o.MaxSizeMB, "Rotate file outputs at this size in megabytes (0 disables rotation).")
	fs.IntVar(&o.MaxBackups, "log.max-backups", o.MaxBackups, "Number of rotated log files to keep.")
	fs.IntVar(&o.MaxAgeDays, "log.max-age-days", o.MaxAgeDays, "Days to keep rotated log files.")
}

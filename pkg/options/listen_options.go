package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// ListenOptions is the part shared by every server the rover exposes.
type ListenOptions struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Network string `json:"network" mapstructure:"network"`
	Addr    string `json:"addr" mapstructure:"addr"`

	// Timeout bounds one request and the graceful shutdown.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

func (o *ListenOptions) validate(name string) []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.Network != "tcp" && o.Network != "tcp4" && o.Network != "tcp6" && o.Network != "unix" {
		errs = append(errs, fmt.Errorf("%s.network %q is not supported", name, o.Network))
	}
	if o.Network != "unix" {
		if err := ValidateAddress(o.Addr); err != nil {
			errs = append(errs, fmt.Errorf("%s.addr: %w", name, err))
		}
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s.timeout must be positive", name))
	}
	return errs
}

func (o *ListenOptions) addFlags(fs *pflag.FlagSet, name, what, timeout string) {
	fs.BoolVar(&o.Enabled, name+".enabled", o.Enabled, "Serve "+what+".")
	fs.StringVar(&o.Network, name+".network", o.Network, "Network of the "+name+" listener: tcp, tcp4, tcp6 or unix.")
	fs.StringVar(&o.Addr, name+".addr", o.Addr, "Bind address of the "+name+" listener, or a socket path for unix.")
	fs.DurationVar(&o.Timeout, name+".timeout", o.Timeout, timeout)
}

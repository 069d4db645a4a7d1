package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions configure the ground station API: console, health and metrics.
type HttpOptions struct {
	ListenOptions `mapstructure:",squash"`
}

func NewHttpOptions() *HttpOptions {
	return &HttpOptions{ListenOptions{
		Enabled: true,
		Network: "tcp",
		Addr:    "0.0.0.0:8080",
		Timeout: 5 * time.Second,
	}}
}

func (o *HttpOptions) Validate() []error {
	if o == nil {
		return nil
	}
	return o.validate("http")
}

func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	o.addFlags(fs, "http", "the console, health and metrics endpoints",
		"Longest request, including the round trip of a console command through the scheduler.")
}

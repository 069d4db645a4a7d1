package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*GrpcOptions)(nil)

// GrpcOptions configure the plaintext gRPC health endpoint.
type GrpcOptions struct {
	ListenOptions `mapstructure:",squash"`
}

func NewGrpcOptions() *GrpcOptions {
	return &GrpcOptions{ListenOptions{
		Enabled: true,
		Network: "tcp",
		Addr:    "0.0.0.0:8091",
		Timeout: 10 * time.Second,
	}}
}

func (o *GrpcOptions) Validate() []error {
	if o == nil {
		return nil
	}
	return o.validate("grpc")
}

func (o *GrpcOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	o.addFlags(fs, "grpc", "the gRPC health service",
		"Deadline of a call that has none, and of the graceful shutdown.")
}

package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/rover/internal/mission"
	"github.com/autopeer-io/rover/internal/rover"
	"github.com/autopeer-io/rover/pkg/app"
	"github.com/autopeer-io/rover/pkg/log"
	"github.com/autopeer-io/rover/pkg/options"
)

type MissionOptions struct {
	Rover       *rover.Options       `json:"rover" mapstructure:"rover"`
	Mission     *mission.Config      `json:"mission" mapstructure:"mission"`
	MqttOptions *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	HttpOptions *options.HttpOptions `json:"http" mapstructure:"http"`
	GrpcOptions *options.GrpcOptions `json:"grpc" mapstructure:"grpc"`
	S3Options   *options.S3Options   `json:"s3" mapstructure:"s3"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*MissionOptions)(nil)

func NewMissionOptions() *MissionOptions {
	o := &MissionOptions{
		Rover:       rover.NewOptions(),
		Mission:     mission.DefaultConfig(),
		MqttOptions: options.NewMqttOptions(),
		HttpOptions: options.NewHttpOptions(),
		GrpcOptions: options.NewGrpcOptions(),
		S3Options:   options.NewS3Options(),
		Log:         log.NewOptions(),
	}

	return o
}

func (o *MissionOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.Rover.AddFlags(fss.FlagSet("rover"))
	o.Mission.AddFlags(fss.FlagSet("mission"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.GrpcOptions.AddFlags(fss.FlagSet("grpc"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// Complete installs the global logger so that everything after option
// parsing logs with the configured format.
func (o *MissionOptions) Complete() error {
	log.Init(o.Log)
	return nil
}

func (o *MissionOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.Rover.Validate()...)
	errs = append(errs, o.Mission.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.GrpcOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *MissionOptions) Config() (*rover.Config, error) {
	return &rover.Config{
		Rover:       o.Rover,
		Mission:     o.Mission,
		MqttOptions: o.MqttOptions,
		HttpOptions: o.HttpOptions,
		GrpcOptions: o.GrpcOptions,
		S3Options:   o.S3Options,
	}, nil
}

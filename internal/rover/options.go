package rover

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/rover/internal/actuator"
	"github.com/autopeer-io/rover/internal/mission"
	"github.com/autopeer-io/rover/internal/rover/hal"
	"github.com/autopeer-io/rover/internal/rover/sim"
	"github.com/autopeer-io/rover/internal/vision"
)

// Options configure the airframe and the scheduler loop.
type Options struct {
	// HAL selects the hardware backend: mock or rpi.
	HAL string `json:"hal" mapstructure:"hal"`

	// ID identifies the rover on the ground link. Empty uses the HAL default.
	ID string `json:"id" mapstructure:"id"`

	TickPeriod time.Duration `json:"tick-period" mapstructure:"tick-period"`
	StartState string        `json:"start-state" mapstructure:"start-state"`

	// Seed drives every random decision. Zero seeds from the clock.
	Seed uint64 `json:"seed" mapstructure:"seed"`

	// Console serves the console on stdin and stdout.
	Console bool `json:"console" mapstructure:"console"`

	// SensorLogDir receives the rotating sensor log. Empty disables it.
	SensorLogDir        string `json:"sensor-log-dir" mapstructure:"sensor-log-dir"`
	SensorLogMaxSizeMB  int    `json:"sensor-log-max-size-mb" mapstructure:"sensor-log-max-size-mb"`
	SensorLogMaxBackups int    `json:"sensor-log-max-backups" mapstructure:"sensor-log-max-backups"`

	// MaxFixAge and MaxFrameAge expire bridged readings of the rpi HAL.
	MaxFixAge   time.Duration `json:"max-fix-age" mapstructure:"max-fix-age"`
	MaxFrameAge time.Duration `json:"max-frame-age" mapstructure:"max-frame-age"`

	Pins   hal.PinConfig        `json:"pins" mapstructure:"pins"`
	Motor  actuator.MotorConfig `json:"motor" mapstructure:"motor"`
	Servo  actuator.ServoConfig `json:"servo" mapstructure:"servo"`
	Vision vision.Config        `json:"vision" mapstructure:"vision"`
	Sim    sim.Config           `json:"sim" mapstructure:"sim"`
}

// NewOptions returns the options of the simulated rover.
func NewOptions() *Options {
	return &Options{
		HAL:                 hal.KindMock,
		TickPeriod:          10 * time.Millisecond,
		StartState:          mission.StateWaiting,
		SensorLogMaxSizeMB:  10,
		SensorLogMaxBackups: 5,
		MaxFixAge:           3 * time.Second,
		MaxFrameAge:         time.Second,
		Pins:                hal.DefaultPins(),
		Motor:               actuator.DefaultMotorConfig(),
		Servo:               actuator.DefaultServoConfig(),
		Vision:              vision.DefaultConfig(),
		Sim:                 sim.DefaultConfig(),
	}
}

func (o *Options) Validate() []error {
	var errs []error

	switch o.HAL {
	case hal.KindMock:
	case hal.KindRPi:
		if err := o.Pins.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("rover.pins: %w", err))
		}
		if o.MaxFixAge <= 0 || o.MaxFrameAge <= 0 {
			errs = append(errs, fmt.Errorf("rover.max-fix-age and rover.max-frame-age must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("rover.hal must be %q or %q, got %q", hal.KindMock, hal.KindRPi, o.HAL))
	}
	if o.TickPeriod <= 0 {
		errs = append(errs, fmt.Errorf("rover.tick-period must be positive"))
	}
	if !slices.Contains(mission.States(), o.StartState) {
		errs = append(errs, fmt.Errorf("rover.start-state %q is not a mission state", o.StartState))
	}
	if o.SensorLogDir != "" && o.SensorLogMaxSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("rover.sensor-log-max-size-mb must be positive"))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.HAL, "rover.hal", o.HAL, "Hardware backend: mock flies the simulated world, rpi drives the GPIO header.")
	fs.StringVar(&o.ID, "rover.id", o.ID, "Rover id on the ground link (defaults to the HAL id).")
	fs.DurationVar(&o.TickPeriod, "rover.tick-period", o.TickPeriod, "Scheduler tick period.")
	fs.StringVar(&o.StartState, "rover.start-state", o.StartState, "Mission state entered at boot.")
	fs.Uint64Var(&o.Seed, "rover.seed", o.Seed, "Seed of the random decisions (0 seeds from the clock).")
	fs.BoolVar(&o.Console, "rover.console", o.Console, "Read console lines from stdin.")

	fs.StringVar(&o.SensorLogDir, "rover.sensor-log-dir", o.SensorLogDir, "Directory of the rotating sensor log (empty disables it).")
	fs.IntVar(&o.SensorLogMaxSizeMB, "rover.sensor-log-max-size-mb", o.SensorLogMaxSizeMB, "Rotate the sensor log at this size.")
	fs.IntVar(&o.SensorLogMaxBackups, "rover.sensor-log-max-backups", o.SensorLogMaxBackups, "Rotated sensor logs to keep.")

	fs.DurationVar(&o.MaxFixAge, "rover.max-fix-age", o.MaxFixAge, "A bridged GPS fix older than this reads as no fix.")
	fs.DurationVar(&o.MaxFrameAge, "rover.max-frame-age", o.MaxFrameAge, "A bridged camera frame older than this reads as no camera.")

	fs.IntVar(&o.Pins.Buzzer, "rover.pins.buzzer", o.Pins.Buzzer, "BCM pin of the buzzer.")
	fs.IntVar(&o.Pins.XBeeSleep, "rover.pins.xbee-sleep", o.Pins.XBeeSleep, "BCM pin of the XBee sleep request line.")
	fs.IntVar(&o.Pins.Light, "rover.pins.light", o.Pins.Light, "BCM pin of the light sensor.")
	fs.IntVar(&o.Pins.Servo, "rover.pins.servo", o.Pins.Servo, "BCM pin of the release servo (hardware PWM).")
	fs.IntVar(&o.Pins.LeftForward, "rover.pins.left-forward", o.Pins.LeftForward, "BCM pin driving the left wheel forward.")
	fs.IntVar(&o.Pins.LeftBackward, "rover.pins.left-backward", o.Pins.LeftBackward, "BCM pin driving the left wheel backward.")
	fs.IntVar(&o.Pins.RightForward, "rover.pins.right-forward", o.Pins.RightForward, "BCM pin driving the right wheel forward.")
	fs.IntVar(&o.Pins.RightBackward, "rover.pins.right-backward", o.Pins.RightBackward, "BCM pin driving the right wheel backward.")

	fs.Float64Var(&o.Motor.Slew, "rover.motor.slew", o.Motor.Slew, "Largest wheel power change per motor update (0 applies targets at once).")
	fs.Float64Var(&o.Servo.BaseDuty, "rover.servo.base-duty", o.Servo.BaseDuty, "Servo duty at angle 0.")
	fs.Float64Var(&o.Servo.RangeDuty, "rover.servo.range-duty", o.Servo.RangeDuty, "Servo duty added at angle 1.")

	fs.Float64Var(&o.Vision.ParaThreshold, "rover.vision.para-threshold", o.Vision.ParaThreshold, "Parachute pixel share above which the parachute counts as present.")
	fs.Float64Var(&o.Vision.SkyThreshold, "rover.vision.sky-threshold", o.Vision.SkyThreshold, "Sky pixel share at which the camera faces the sky.")
	fs.Float64Var(&o.Vision.RutRate, "rover.vision.rut-rate", o.Vision.RutRate, "Edge ratio between adjacent strips that marks a rut edge.")
	fs.Float64Var(&o.Vision.HorizonSpread, "rover.vision.horizon-spread", o.Vision.HorizonSpread, "Horizon spread in pixels above which no exit side is trusted.")

	fs.BoolVar(&o.Sim.GPS, "rover.sim.gps", o.Sim.GPS, "Simulate a GPS receiver.")
	fs.BoolVar(&o.Sim.Camera, "rover.sim.camera", o.Sim.Camera, "Simulate a camera.")
	fs.Float64Var(&o.Sim.Goal.Lat, "rover.sim.goal-lat", o.Sim.Goal.Lat, "Latitude of the simulated goal.")
	fs.Float64Var(&o.Sim.Goal.Lon, "rover.sim.goal-lon", o.Sim.Goal.Lon, "Longitude of the simulated goal.")
	fs.Float64Var(&o.Sim.Start.X, "rover.sim.start-x", o.Sim.Start.X, "Landing point east of the goal in metres.")
	fs.Float64Var(&o.Sim.Start.Y, "rover.sim.start-y", o.Sim.Start.Y, "Landing point north of the goal in metres.")
	fs.DurationVar(&o.Sim.DropFor, "rover.sim.drop-for", o.Sim.DropFor, "Simulated descent time.")
	fs.Uint64Var(&o.Sim.Seed, "rover.sim.seed", o.Sim.Seed, "Seed of the simulated sensor noise.")
}

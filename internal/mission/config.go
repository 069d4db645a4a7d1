package mission

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Landing rules for the Falling state.
const (
	// RuleStable lands when pressure and gyro are both quiet, or when the wheels are spun.
	RuleStable = "stable"
	// RuleAny lands on the first quiet signal.
	RuleAny = "any"
)

// Config holds every threshold of the mission states.
type Config struct {
	Waiting    WaitingConfig    `json:"waiting" mapstructure:"waiting"`
	Falling    FallingConfig    `json:"falling" mapstructure:"falling"`
	Separating SeparatingConfig `json:"separating" mapstructure:"separating"`
	Navigating NavigatingConfig `json:"navigating" mapstructure:"navigating"`
	Predicting PredictingConfig `json:"predicting" mapstructure:"predicting"`
	Escaping   EscapingConfig   `json:"escaping" mapstructure:"escaping"`
	Random     RandomConfig     `json:"random" mapstructure:"random"`
	Avoiding   AvoidingConfig   `json:"avoiding" mapstructure:"avoiding"`
	Turning    TurningConfig    `json:"turning" mapstructure:"turning"`
	Waking     WakingConfig     `json:"waking" mapstructure:"waking"`
	Color      ColorConfig      `json:"color" mapstructure:"color"`
	Picture    PictureConfig    `json:"picture" mapstructure:"picture"`
	SensorLog  SensorLogConfig  `json:"sensor-log" mapstructure:"sensor-log"`
}

type WaitingConfig struct {
	// LightCount is the number of consecutive light readings that release the rover.
	LightCount int `json:"light-count" mapstructure:"light-count"`
	// Timeout forces the release after this long. Zero waits forever.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

type FallingConfig struct {
	CheckInterval time.Duration `json:"check-interval" mapstructure:"check-interval"`
	PressureDelta float64       `json:"pressure-delta" mapstructure:"pressure-delta"`
	PressureCount int           `json:"pressure-count" mapstructure:"pressure-count"`
	GyroRate      float64       `json:"gyro-rate" mapstructure:"gyro-rate"`
	GyroCount     int           `json:"gyro-count" mapstructure:"gyro-count"`
	PulseDelta    uint64        `json:"pulse-delta" mapstructure:"pulse-delta"`
	PulseCount    int           `json:"pulse-count" mapstructure:"pulse-count"`
	Rule          string        `json:"rule" mapstructure:"rule"`
	Timeout       time.Duration `json:"timeout" mapstructure:"timeout"`
}

type SeparatingConfig struct {
	ServoInterval time.Duration `json:"servo-interval" mapstructure:"servo-interval"`
	ServoCycles   int           `json:"servo-cycles" mapstructure:"servo-cycles"`
	JudgeDelay    time.Duration `json:"judge-delay" mapstructure:"judge-delay"`
	JudgeRetries  int           `json:"judge-retries" mapstructure:"judge-retries"`
	DodgeMax      int           `json:"dodge-max" mapstructure:"dodge-max"`
	Forward       time.Duration `json:"forward" mapstructure:"forward"`
}

type NavigatingConfig struct {
	// GoalLat and GoalLon locate the goal. Both zero means no goal.
	GoalLat float64 `json:"goal-lat" mapstructure:"goal-lat"`
	GoalLon float64 `json:"goal-lon" mapstructure:"goal-lon"`

	CheckInterval    time.Duration `json:"check-interval" mapstructure:"check-interval"`
	Window           int           `json:"window" mapstructure:"window"`
	MinFixes         int           `json:"min-fixes" mapstructure:"min-fixes"`
	StuckDistance    float64       `json:"stuck-distance" mapstructure:"stuck-distance"`
	OutlierDistance  float64       `json:"outlier-distance" mapstructure:"outlier-distance"`
	StuckCount       int           `json:"stuck-count" mapstructure:"stuck-count"`
	PulseStall       uint64        `json:"pulse-stall" mapstructure:"pulse-stall"`
	PulseCount       int           `json:"pulse-count" mapstructure:"pulse-count"`
	BasePower        float64       `json:"base-power" mapstructure:"base-power"`
	SteerGain        float64       `json:"steer-gain" mapstructure:"steer-gain"`
	PivotAngle       float64       `json:"pivot-angle" mapstructure:"pivot-angle"`
	OverturnAngle    float64       `json:"overturn-angle" mapstructure:"overturn-angle"`
	ApproachDistance float64       `json:"approach-distance" mapstructure:"approach-distance"`
	GoalRadius       float64       `json:"goal-radius" mapstructure:"goal-radius"`
}

type PredictingConfig struct {
	Interval time.Duration `json:"interval" mapstructure:"interval"`
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
}

type EscapingConfig struct {
	Backward         time.Duration `json:"backward" mapstructure:"backward"`
	Pause            time.Duration `json:"pause" mapstructure:"pause"`
	Turn             time.Duration `json:"turn" mapstructure:"turn"`
	Pivot            time.Duration `json:"pivot" mapstructure:"pivot"`
	Forward          time.Duration `json:"forward" mapstructure:"forward"`
	MaxTries         int           `json:"max-tries" mapstructure:"max-tries"`
	ProgressDistance float64       `json:"progress-distance" mapstructure:"progress-distance"`
	ProgressPulses   uint64        `json:"progress-pulses" mapstructure:"progress-pulses"`
}

type RandomConfig struct {
	MaxTries int `json:"max-tries" mapstructure:"max-tries"`
}

type AvoidingConfig struct {
	Angle       float64       `json:"angle" mapstructure:"angle"`
	TurnTimeout time.Duration `json:"turn-timeout" mapstructure:"turn-timeout"`
	Forward     time.Duration `json:"forward" mapstructure:"forward"`
}

type TurningConfig struct {
	Angle   float64       `json:"angle" mapstructure:"angle"`
	Power   float64       `json:"power" mapstructure:"power"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

type WakingConfig struct {
	Power      float64       `json:"power" mapstructure:"power"`
	Start      time.Duration `json:"start" mapstructure:"start"`
	Settle     time.Duration `json:"settle" mapstructure:"settle"`
	Tolerance  float64       `json:"tolerance" mapstructure:"tolerance"`
	MaxRetries int           `json:"max-retries" mapstructure:"max-retries"`
}

type ColorConfig struct {
	// Retries bounds the consecutive checks without the goal in sight.
	Retries int `json:"retries" mapstructure:"retries"`
	// MaxTime bounds one approach attempt.
	MaxTime time.Duration `json:"max-time" mapstructure:"max-time"`
	// MaxRenav bounds the attempts that restart from navigation.
	MaxRenav        int           `json:"max-renav" mapstructure:"max-renav"`
	Displace        time.Duration `json:"displace" mapstructure:"displace"`
	CenterTolerance float64       `json:"center-tolerance" mapstructure:"center-tolerance"`
	ArriveArea      float64       `json:"arrive-area" mapstructure:"arrive-area"`
	CloseArea       float64       `json:"close-area" mapstructure:"close-area"`
	PulseHigh       uint64        `json:"pulse-high" mapstructure:"pulse-high"`
	PulseLow        uint64        `json:"pulse-low" mapstructure:"pulse-low"`
	RampStep        float64       `json:"ramp-step" mapstructure:"ramp-step"`
	MinPower        float64       `json:"min-power" mapstructure:"min-power"`
	MaxPower        float64       `json:"max-power" mapstructure:"max-power"`
	TurnBurst       time.Duration `json:"turn-burst" mapstructure:"turn-burst"`
	ShortRun        time.Duration `json:"short-run" mapstructure:"short-run"`
	LongRun         time.Duration `json:"long-run" mapstructure:"long-run"`
	// HeadingTolerance is the bearing error in degrees accepted while homing
	// on GPS without a camera.
	HeadingTolerance float64 `json:"heading-tolerance" mapstructure:"heading-tolerance"`
	// HeadingRun is the shortest run in metres that yields a GPS heading.
	HeadingRun float64 `json:"heading-run" mapstructure:"heading-run"`
}

type PictureConfig struct {
	Count    int           `json:"count" mapstructure:"count"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

type SensorLogConfig struct {
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// DefaultConfig returns the thresholds flown on the reference airframe.
func DefaultConfig() *Config {
	return &Config{
		Waiting: WaitingConfig{LightCount: 3},
		Falling: FallingConfig{
			CheckInterval: time.Second,
			PressureDelta: 0.2,
			PressureCount: 5,
			GyroRate:      20,
			GyroCount:     5,
			PulseDelta:    50,
			PulseCount:    3,
			Rule:          RuleStable,
			Timeout:       5 * time.Minute,
		},
		Separating: SeparatingConfig{
			ServoInterval: 500 * time.Millisecond,
			ServoCycles:   14,
			JudgeDelay:    time.Second,
			JudgeRetries:  5,
			DodgeMax:      3,
			Forward:       3 * time.Second,
		},
		Navigating: NavigatingConfig{
			CheckInterval:    2 * time.Second,
			Window:           4,
			MinFixes:         3,
			StuckDistance:    1.0,
			OutlierDistance:  3.0,
			StuckCount:       2,
			PulseStall:       30,
			PulseCount:       3,
			BasePower:        0.7,
			SteerGain:        0.01,
			PivotAngle:       120,
			OverturnAngle:    60,
			ApproachDistance: 5,
			GoalRadius:       1.5,
		},
		Predicting: PredictingConfig{Interval: 5 * time.Second, Enabled: true},
		Escaping: EscapingConfig{
			Backward:         2 * time.Second,
			Pause:            time.Second,
			Turn:             time.Second,
			Pivot:            3 * time.Second,
			Forward:          3 * time.Second,
			MaxTries:         3,
			ProgressDistance: 1.0,
			ProgressPulses:   200,
		},
		Random:   RandomConfig{MaxTries: 3},
		Avoiding: AvoidingConfig{Angle: 45, TurnTimeout: 4 * time.Second, Forward: 3 * time.Second},
		Turning:  TurningConfig{Angle: 90, Power: 0.6, Timeout: 8 * time.Second},
		Waking: WakingConfig{
			Power:      1.0,
			Start:      time.Second,
			Settle:     2 * time.Second,
			Tolerance:  30,
			MaxRetries: 3,
		},
		Color: ColorConfig{
			Retries:         5,
			MaxTime:         90 * time.Second,
			MaxRenav:        2,
			Displace:        4 * time.Second,
			CenterTolerance: 0.15,
			ArriveArea:      0.25,
			CloseArea:       0.4,
			PulseHigh:       40,
			PulseLow:        10,
			RampStep:        0.05,
			MinPower:        0.3,
			MaxPower:        0.8,
			TurnBurst:       300 * time.Millisecond,
			ShortRun:        500 * time.Millisecond,
			LongRun:         1500 * time.Millisecond,

			HeadingTolerance: 30,
			HeadingRun:       0.3,
		},
		Picture:   PictureConfig{Count: 3, Interval: time.Second},
		SensorLog: SensorLogConfig{Interval: time.Second},
	}
}

// Validate returns every threshold that would stall or crash a state.
func (c *Config) Validate() []error {
	var errs []error
	positive := func(name string, ok bool) {
		if !ok {
			errs = append(errs, fmt.Errorf("mission.%s must be positive", name))
		}
	}

	positive("waiting.light-count", c.Waiting.LightCount > 0)
	positive("falling.check-interval", c.Falling.CheckInterval > 0)
	positive("falling.pressure-count", c.Falling.PressureCount > 0)
	positive("falling.gyro-count", c.Falling.GyroCount > 0)
	positive("falling.pulse-count", c.Falling.PulseCount > 0)
	if c.Falling.Rule != RuleStable && c.Falling.Rule != RuleAny {
		errs = append(errs, fmt.Errorf("mission.falling.rule must be %q or %q, got %q", RuleStable, RuleAny, c.Falling.Rule))
	}
	positive("separating.servo-interval", c.Separating.ServoInterval > 0)
	positive("separating.judge-retries", c.Separating.JudgeRetries > 0)
	positive("navigating.check-interval", c.Navigating.CheckInterval > 0)
	positive("navigating.window", c.Navigating.Window > 0)
	positive("navigating.stuck-distance", c.Navigating.StuckDistance > 0)
	positive("navigating.stuck-count", c.Navigating.StuckCount > 0)
	positive("navigating.pulse-count", c.Navigating.PulseCount > 0)
	if c.Navigating.MinFixes > c.Navigating.Window {
		errs = append(errs, errors.New("mission.navigating.min-fixes must not exceed mission.navigating.window"))
	}
	if c.Navigating.GoalLat < -90 || c.Navigating.GoalLat > 90 || c.Navigating.GoalLon < -180 || c.Navigating.GoalLon > 180 {
		errs = append(errs, fmt.Errorf("mission.navigating goal %f,%f is not a valid position", c.Navigating.GoalLat, c.Navigating.GoalLon))
	}
	positive("predicting.interval", c.Predicting.Interval > 0)
	positive("escaping.max-tries", c.Escaping.MaxTries > 0)
	positive("random.max-tries", c.Random.MaxTries > 0)
	positive("turning.timeout", c.Turning.Timeout > 0)
	positive("avoiding.turn-timeout", c.Avoiding.TurnTimeout > 0)
	positive("waking.max-retries", c.Waking.MaxRetries > 0)
	positive("color.retries", c.Color.Retries > 0)
	positive("color.max-time", c.Color.MaxTime > 0)
	positive("color.heading-run", c.Color.HeadingRun > 0)
	if c.Color.MinPower > c.Color.MaxPower {
		errs = append(errs, errors.New("mission.color.min-power must not exceed mission.color.max-power"))
	}
	positive("picture.interval", c.Picture.Interval > 0)
	positive("sensor-log.interval", c.SensorLog.Interval > 0)

	return errs
}

// AddFlags registers the mission thresholds under mission.*.
func (c *Config) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&c.Waiting.LightCount, "mission.waiting.light-count", c.Waiting.LightCount, "Consecutive light readings that release the rover.")
	fs.DurationVar(&c.Waiting.Timeout, "mission.waiting.timeout", c.Waiting.Timeout, "Force the release after this long (0 waits forever).")

	fs.DurationVar(&c.Falling.CheckInterval, "mission.falling.check-interval", c.Falling.CheckInterval, "Period of the landing checks.")
	fs.Float64Var(&c.Falling.PressureDelta, "mission.falling.pressure-delta", c.Falling.PressureDelta, "Pressure change (hPa) below which the air pressure counts as stable.")
	fs.IntVar(&c.Falling.PressureCount, "mission.falling.pressure-count", c.Falling.PressureCount, "Consecutive stable pressure checks required.")
	fs.Float64Var(&c.Falling.GyroRate, "mission.falling.gyro-rate", c.Falling.GyroRate, "Angular rate (deg/s) below which the rover counts as still.")
	fs.IntVar(&c.Falling.GyroCount, "mission.falling.gyro-count", c.Falling.GyroCount, "Consecutive still gyro checks required.")
	fs.Uint64Var(&c.Falling.PulseDelta, "mission.falling.pulse-delta", c.Falling.PulseDelta, "Encoder pulses per check above which the wheels count as spun.")
	fs.IntVar(&c.Falling.PulseCount, "mission.falling.pulse-count", c.Falling.PulseCount, "Consecutive spun-wheel checks required.")
	fs.StringVar(&c.Falling.Rule, "mission.falling.rule", c.Falling.Rule, "Landing rule: stable or any.")
	fs.DurationVar(&c.Falling.Timeout, "mission.falling.timeout", c.Falling.Timeout, "Assume landing after this long.")

	fs.DurationVar(&c.Separating.ServoInterval, "mission.separating.servo-interval", c.Separating.ServoInterval, "Time between two release servo moves.")
	fs.IntVar(&c.Separating.ServoCycles, "mission.separating.servo-cycles", c.Separating.ServoCycles, "Number of release servo moves.")
	fs.DurationVar(&c.Separating.JudgeDelay, "mission.separating.judge-delay", c.Separating.JudgeDelay, "Wait before each parachute check.")
	fs.IntVar(&c.Separating.JudgeRetries, "mission.separating.judge-retries", c.Separating.JudgeRetries, "Parachute checks before a dodge.")
	fs.IntVar(&c.Separating.DodgeMax, "mission.separating.dodge-max", c.Separating.DodgeMax, "Dodges before moving on regardless.")
	fs.DurationVar(&c.Separating.Forward, "mission.separating.forward", c.Separating.Forward, "Forward run after separation.")

	fs.Float64Var(&c.Navigating.GoalLat, "mission.navigating.goal-lat", c.Navigating.GoalLat, "Goal latitude.")
	fs.Float64Var(&c.Navigating.GoalLon, "mission.navigating.goal-lon", c.Navigating.GoalLon, "Goal longitude.")
	fs.DurationVar(&c.Navigating.CheckInterval, "mission.navigating.check-interval", c.Navigating.CheckInterval, "Period of the navigation checks.")
	fs.IntVar(&c.Navigating.Window, "mission.navigating.window", c.Navigating.Window, "Number of GPS positions kept for the stuck check.")
	fs.IntVar(&c.Navigating.MinFixes, "mission.navigating.min-fixes", c.Navigating.MinFixes, "Positions required before the rover can be declared stuck.")
	fs.Float64Var(&c.Navigating.StuckDistance, "mission.navigating.stuck-distance", c.Navigating.StuckDistance, "Spread (m) below which the rover counts as stuck.")
	fs.Float64Var(&c.Navigating.OutlierDistance, "mission.navigating.outlier-distance", c.Navigating.OutlierDistance, "Jump (m) between two fixes treated as a GPS discontinuity.")
	fs.IntVar(&c.Navigating.StuckCount, "mission.navigating.stuck-count", c.Navigating.StuckCount, "Consecutive stuck GPS checks required.")
	fs.Uint64Var(&c.Navigating.PulseStall, "mission.navigating.pulse-stall", c.Navigating.PulseStall, "Encoder pulses per check below which the wheels count as stalled.")
	fs.IntVar(&c.Navigating.PulseCount, "mission.navigating.pulse-count", c.Navigating.PulseCount, "Consecutive stalled encoder checks required.")
	fs.Float64Var(&c.Navigating.BasePower, "mission.navigating.base-power", c.Navigating.BasePower, "Cruise motor power.")
	fs.Float64Var(&c.Navigating.SteerGain, "mission.navigating.steer-gain", c.Navigating.SteerGain, "Motor power difference per degree of heading error.")
	fs.Float64Var(&c.Navigating.PivotAngle, "mission.navigating.pivot-angle", c.Navigating.PivotAngle, "Heading error (deg) above which the rover turns in place.")
	fs.Float64Var(&c.Navigating.OverturnAngle, "mission.navigating.overturn-angle", c.Navigating.OverturnAngle, "Roll or pitch (deg) above which the rover counts as overturned.")
	fs.Float64Var(&c.Navigating.ApproachDistance, "mission.navigating.approach-distance", c.Navigating.ApproachDistance, "Distance (m) at which the colour approach starts.")
	fs.Float64Var(&c.Navigating.GoalRadius, "mission.navigating.goal-radius", c.Navigating.GoalRadius, "Distance (m) at which the goal counts as reached.")

	fs.DurationVar(&c.Predicting.Interval, "mission.predicting.interval", c.Predicting.Interval, "Period of the rut scan.")
	fs.BoolVar(&c.Predicting.Enabled, "mission.predicting.enabled", c.Predicting.Enabled, "Scan for ruts while navigating.")

	fs.DurationVar(&c.Escaping.Backward, "mission.escaping.backward", c.Escaping.Backward, "Backward run of an escape attempt.")
	fs.DurationVar(&c.Escaping.Pause, "mission.escaping.pause", c.Escaping.Pause, "Pause before looking for an exit.")
	fs.DurationVar(&c.Escaping.Turn, "mission.escaping.turn", c.Escaping.Turn, "Turn toward a visible exit.")
	fs.DurationVar(&c.Escaping.Pivot, "mission.escaping.pivot", c.Escaping.Pivot, "Turn in place when no exit is visible.")
	fs.DurationVar(&c.Escaping.Forward, "mission.escaping.forward", c.Escaping.Forward, "Forward run of an escape attempt.")
	fs.IntVar(&c.Escaping.MaxTries, "mission.escaping.max-tries", c.Escaping.MaxTries, "Camera escape attempts before the random strategy.")
	fs.Float64Var(&c.Escaping.ProgressDistance, "mission.escaping.progress-distance", c.Escaping.ProgressDistance, "Displacement (m) that ends an escape.")
	fs.Uint64Var(&c.Escaping.ProgressPulses, "mission.escaping.progress-pulses", c.Escaping.ProgressPulses, "Encoder pulses that end an escape without GPS.")

	fs.IntVar(&c.Random.MaxTries, "mission.random.max-tries", c.Random.MaxTries, "Random escape attempts before navigation resumes.")

	fs.Float64Var(&c.Avoiding.Angle, "mission.avoiding.angle", c.Avoiding.Angle, "Turn angle (deg) away from a rut.")
	fs.DurationVar(&c.Avoiding.TurnTimeout, "mission.avoiding.turn-timeout", c.Avoiding.TurnTimeout, "Longest avoidance turn.")
	fs.DurationVar(&c.Avoiding.Forward, "mission.avoiding.forward", c.Avoiding.Forward, "Forward run after the avoidance turn.")

	fs.Float64Var(&c.Turning.Angle, "mission.turning.angle", c.Turning.Angle, "Default turn angle (deg).")
	fs.Float64Var(&c.Turning.Power, "mission.turning.power", c.Turning.Power, "Motor power while turning.")
	fs.DurationVar(&c.Turning.Timeout, "mission.turning.timeout", c.Turning.Timeout, "Longest turn.")

	fs.Float64Var(&c.Waking.Power, "mission.waking.power", c.Waking.Power, "Motor power of the righting kick.")
	fs.DurationVar(&c.Waking.Start, "mission.waking.start", c.Waking.Start, "Duration of the righting kick.")
	fs.DurationVar(&c.Waking.Settle, "mission.waking.settle", c.Waking.Settle, "Wait before checking the attitude.")
	fs.Float64Var(&c.Waking.Tolerance, "mission.waking.tolerance", c.Waking.Tolerance, "Roll and pitch (deg) accepted as upright.")
	fs.IntVar(&c.Waking.MaxRetries, "mission.waking.max-retries", c.Waking.MaxRetries, "Righting attempts before navigation resumes.")

	fs.IntVar(&c.Color.Retries, "mission.color.retries", c.Color.Retries, "Checks without the goal in sight before backing off.")
	fs.DurationVar(&c.Color.MaxTime, "mission.color.max-time", c.Color.MaxTime, "Longest colour approach attempt.")
	fs.IntVar(&c.Color.MaxRenav, "mission.color.max-renav", c.Color.MaxRenav, "Approach attempts restarted from navigation before giving up.")
	fs.DurationVar(&c.Color.Displace, "mission.color.displace", c.Color.Displace, "Straight run after an approach attempt times out.")
	fs.Float64Var(&c.Color.CenterTolerance, "mission.color.center-tolerance", c.Color.CenterTolerance, "Horizontal offset accepted as centred.")
	fs.Float64Var(&c.Color.ArriveArea, "mission.color.arrive-area", c.Color.ArriveArea, "Goal area share that counts as arrival.")
	fs.Float64Var(&c.Color.CloseArea, "mission.color.close-area", c.Color.CloseArea, "Goal area share that switches to short runs.")
	fs.Uint64Var(&c.Color.PulseHigh, "mission.color.pulse-high", c.Color.PulseHigh, "Encoder pulses per run above which a wheel counts as travelling.")
	fs.Uint64Var(&c.Color.PulseLow, "mission.color.pulse-low", c.Color.PulseLow, "Encoder pulses per run below which a wheel counts as stopped.")
	fs.Float64Var(&c.Color.RampStep, "mission.color.ramp-step", c.Color.RampStep, "Motor power change per approach step.")
	fs.Float64Var(&c.Color.MinPower, "mission.color.min-power", c.Color.MinPower, "Lowest approach motor power.")
	fs.Float64Var(&c.Color.MaxPower, "mission.color.max-power", c.Color.MaxPower, "Highest approach motor power.")
	fs.DurationVar(&c.Color.TurnBurst, "mission.color.turn-burst", c.Color.TurnBurst, "Duration of one centring turn.")
	fs.DurationVar(&c.Color.ShortRun, "mission.color.short-run", c.Color.ShortRun, "Forward run when the goal is close.")
	fs.DurationVar(&c.Color.LongRun, "mission.color.long-run", c.Color.LongRun, "Forward run when the goal is far.")
	fs.Float64Var(&c.Color.HeadingTolerance, "mission.color.heading-tolerance", c.Color.HeadingTolerance, "Bearing error in degrees accepted when homing on GPS without a camera.")
	fs.Float64Var(&c.Color.HeadingRun, "mission.color.heading-run", c.Color.HeadingRun, "Shortest run in metres that yields a GPS heading.")

	fs.IntVar(&c.Picture.Count, "mission.picture.count", c.Picture.Count, "Pictures taken at the goal.")
	fs.DurationVar(&c.Picture.Interval, "mission.picture.interval", c.Picture.Interval, "Time between two pictures.")
	fs.DurationVar(&c.SensorLog.Interval, "mission.sensor-log.interval", c.SensorLog.Interval, "Period of the sensor log lines.")
}

package mission

import (
	"bytes"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/rover/internal/actuator"
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/internal/vision"
)

type fakeSensors struct {
	fix         core.Fix
	hasFix      bool
	att         core.Attitude
	rate        core.Vector3
	pressure    float64
	light       bool
	left, right uint64
	frame       *core.Frame
}

func (s *fakeSensors) Position() (core.Fix, bool) { return s.fix, s.hasFix }
func (s *fakeSensors) Attitude() core.Attitude    { return s.att }
func (s *fakeSensors) AngularRate() core.Vector3  { return s.rate }
func (s *fakeSensors) Pressure() float64          { return s.pressure }
func (s *fakeSensors) Light() bool                { return s.light }
func (s *fakeSensors) Pulses() (uint64, uint64)   { return s.left, s.right }
func (s *fakeSensors) Frame() *core.Frame         { return s.frame }

type fakeVision struct {
	para    bool
	wadachi bool
	exit    int
	blob    *core.Blob
}

func (v *fakeVision) IsParaExist(f *core.Frame) bool    { return f == nil || v.para }
func (v *fakeVision) IsSky(*core.Frame) bool            { return false }
func (v *fakeVision) IsWadachiExist(f *core.Frame) bool { return f != nil && v.wadachi }

func (v *fakeVision) WadachiExiting(f *core.Frame) int {
	if f == nil {
		return 1
	}
	return v.exit
}

func (v *fakeVision) GoalBlob(f *core.Frame) (core.Blob, bool) {
	if f == nil || v.blob == nil {
		return core.Blob{}, false
	}
	return *v.blob, true
}

type nopOutput struct{}

func (nopOutput) Set(bool)               {}
func (nopOutput) Write(float64)          {}
func (nopOutput) Drive(float64, float64) {}

type fakeSink struct{ names []string }

func (s *fakeSink) Save(name string, _ []byte) { s.names = append(s.names, name) }

var goal = core.Fix{Lat: 35.0, Lon: 139.0}

// fixAt returns the fix x metres east and y metres north of the goal.
func fixAt(x, y float64) core.Fix {
	const r = 6378137.0
	return core.Fix{
		Lat: goal.Lat + y/r*180/math.Pi,
		Lon: goal.Lon + x/(r*math.Cos(goal.Lat*math.Pi/180))*180/math.Pi,
	}
}

type harness struct {
	t           *testing.T
	clk         *testingclock.FakeClock
	sched       *scheduler.Scheduler
	sensors     *fakeSensors
	vision      *fakeVision
	motor       *actuator.Motor
	servo       *actuator.Servo
	radio       *actuator.XBeeSleep
	mission     *Mission
	transitions []Transition
}

func newHarness(t *testing.T, cfg *Config, initial string, mods ...func(*Options)) *harness {
	t.Helper()

	h := &harness{
		t:       t,
		clk:     testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		sensors: &fakeSensors{pressure: 1013},
		vision:  &fakeVision{},
		motor:   actuator.NewMotor(actuator.MotorConfig{}, nopOutput{}),
		servo:   actuator.NewServo(actuator.DefaultServoConfig(), nopOutput{}),
		radio:   actuator.NewXBeeSleep(nopOutput{}),
	}
	h.sched = scheduler.New(h.clk, h.sensors)
	buzzer := actuator.NewBuzzer(nopOutput{})
	require.NoError(t, h.sched.Register(h.motor, h.servo, h.radio, buzzer))

	opts := Options{
		Initial: initial,
		Devices: Devices{Motor: h.motor, Servo: h.servo, Buzzer: buzzer, Radio: h.radio},
		Vision:  h.vision,
		Sensors: h.sensors,
		Rand:    rand.New(rand.NewPCG(7, 7)),
	}
	for _, mod := range mods {
		mod(&opts)
	}

	m, err := New(cfg, h.sched, opts)
	require.NoError(t, err)
	m.Supervisor.OnTransition(func(tr Transition) { h.transitions = append(h.transitions, tr) })
	h.mission = m
	require.NoError(t, m.Start())
	return h
}

func (h *harness) tick(d time.Duration) {
	h.t.Helper()
	h.clk.Step(d)
	h.sched.Tick()

	active := 0
	for _, task := range h.sched.Tasks() {
		if task.Kind() == scheduler.KindMission && h.sched.IsActive(task) {
			active++
		}
	}
	require.LessOrEqual(h.t, active, 1, "mission tasks are mutually exclusive")
}

// runWhile ticks until the mission leaves state or max ticks elapse.
func (h *harness) runWhile(state string, d time.Duration, max int) {
	h.t.Helper()
	for i := 0; i < max && h.state() == state; i++ {
		h.tick(d)
	}
}

func (h *harness) state() string { return h.mission.Supervisor.Current() }

func (h *harness) last() Transition {
	h.t.Helper()
	require.NotEmpty(h.t, h.transitions)
	return h.transitions[len(h.transitions)-1]
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Predicting.Enabled = false
	return cfg
}

func withGoal(cfg *Config) *Config {
	cfg.Navigating.GoalLat, cfg.Navigating.GoalLon = goal.Lat, goal.Lon
	return cfg
}

func TestWaitingDebouncesLight(t *testing.T) {
	h := newHarness(t, testConfig(), StateWaiting)
	assert.True(t, h.radio.Asleep(), "radio sleeps while contained")

	for i, light := range []bool{true, true, false, true, true, true} {
		h.sensors.light = light
		h.tick(10 * time.Millisecond)
		if i < 5 {
			assert.Equal(t, StateWaiting, h.state(), "tick %d", i+1)
		}
	}

	assert.Equal(t, StateFalling, h.state())
	assert.Equal(t, EventLight, h.last().Event)
	assert.False(t, h.radio.Asleep())
}

func TestTestingStartsOnCommand(t *testing.T) {
	h := newHarness(t, testConfig(), StateTesting)

	var out bytes.Buffer
	require.NoError(t, h.sched.Dispatch(&out, "testing start"))
	assert.Equal(t, StateWaiting, h.state())

	out.Reset()
	err := h.sched.Dispatch(&out, "testing stop")
	assert.ErrorIs(t, err, scheduler.ErrUnknownCommand)
}

func TestFallingLandsWhenPressureAndGyroSettle(t *testing.T) {
	h := newHarness(t, testConfig(), StateFalling)

	for i := 0; i < 5; i++ {
		h.tick(time.Second)
		assert.Equal(t, StateFalling, h.state(), "check %d", i+1)
	}
	h.tick(time.Second)

	assert.Equal(t, StateSeparating, h.state())
	assert.Equal(t, EventLanded, h.last().Event)
}

func TestFallingTimeoutForcesProgress(t *testing.T) {
	cfg := testConfig()
	cfg.Falling.Timeout = 10 * time.Second
	h := newHarness(t, cfg, StateFalling)

	for i := 0; i < 9; i++ {
		h.sensors.pressure += 1
		h.tick(time.Second)
	}
	assert.Equal(t, StateFalling, h.state(), "gyro alone does not satisfy the stable rule")

	h.tick(time.Second)
	assert.Equal(t, StateSeparating, h.state())
}

func TestFallingLandingRules(t *testing.T) {
	tests := []struct {
		name     string
		rule     string
		pressure bool // pressure holds steady
		gyro     bool // airframe stops rotating
		spin     bool // wheels spun by the tumble
		landAt   int  // check that lands, 0 when none within ten
	}{
		{"stable via pulses", RuleStable, false, false, true, 4},
		{"stable needs pressure with gyro", RuleStable, false, true, false, 0},
		{"any via pressure", RuleAny, true, false, false, 6},
		{"any via gyro", RuleAny, false, true, false, 6},
		{"any via pulses", RuleAny, false, false, true, 4},
		{"any with nothing settled", RuleAny, false, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Falling.Rule = tt.rule
			h := newHarness(t, cfg, StateFalling)

			// The first check only primes the baselines.
			for check := 1; check <= 10; check++ {
				if !tt.pressure {
					h.sensors.pressure += 1
				}
				h.sensors.rate = core.Vector3{}
				if !tt.gyro {
					h.sensors.rate = core.Vector3{Z: 50}
				}
				if tt.spin {
					h.sensors.left += 100
					h.sensors.right += 100
				}
				h.tick(time.Second)

				if tt.landAt == 0 || check < tt.landAt {
					require.Equal(t, StateFalling, h.state(), "check %d", check)
					continue
				}
				assert.Equal(t, StateSeparating, h.state(), "check %d", check)
				assert.Equal(t, EventLanded, h.last().Event)
				return
			}
			assert.Zero(t, tt.landAt, "never landed")
		})
	}
}

func TestSeparatingGivesUpOnFouledParachute(t *testing.T) {
	cfg := testConfig()
	cfg.Separating.ServoCycles = 2
	cfg.Separating.JudgeRetries = 2
	cfg.Separating.DodgeMax = 1
	h := newHarness(t, cfg, StateSeparating)
	h.sensors.frame = &core.Frame{}
	h.vision.para = true

	h.runWhile(StateSeparating, 100*time.Millisecond, 200)

	assert.Equal(t, StateNavigating, h.state())
	assert.Equal(t, EventSeparated, h.last().Event)
	assert.Equal(t, 1, h.mission.Separating.dodges)
	_, holding := h.servo.Angle()
	assert.False(t, holding, "servo released on exit")
}

func TestSeparatingSkipsParachuteCheckWithoutCamera(t *testing.T) {
	cfg := testConfig()
	cfg.Separating.ServoCycles = 2
	h := newHarness(t, cfg, StateSeparating)
	h.vision.para = true

	// 2 servo moves, the judge delay, one judge tick and the forward run.
	h.runWhile(StateSeparating, 100*time.Millisecond, 200)

	assert.Equal(t, StateNavigating, h.state())
	assert.Zero(t, h.mission.Separating.dodges)
	assert.InDelta(t, 5.1, h.last().Time.Sub(h.transitions[0].Time).Seconds(), 0.01)
}

func TestNavigatingGPSStuck(t *testing.T) {
	tests := []struct {
		name  string
		fixes [][2]float64
	}{
		{"stationary", [][2]float64{{0, 100}, {0.2, 100}, {0.3, 100}}},
		{"jump then stationary", [][2]float64{{0, 100}, {5, 100}, {5.1, 100}, {5.2, 100}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := withGoal(testConfig())
			cfg.Navigating.StuckCount = 1
			h := newHarness(t, cfg, StateNavigating)
			h.sensors.hasFix = true
			h.sensors.frame = &core.Frame{}

			for i, f := range tt.fixes {
				if i == len(tt.fixes)-1 {
					assert.Equal(t, StateNavigating, h.state())
				}
				h.sensors.fix = fixAt(f[0], f[1])
				h.sensors.left += 100
				h.sensors.right += 100
				h.tick(2 * time.Second)
			}

			assert.Equal(t, StateEscaping, h.state())
			assert.Equal(t, EventStuck, h.last().Event)
		})
	}
}

func TestNavigatingEncoderStuckWithoutCamera(t *testing.T) {
	h := newHarness(t, withGoal(testConfig()), StateNavigating)

	for i := 0; i < 3; i++ {
		h.tick(2 * time.Second)
		assert.Equal(t, StateNavigating, h.state())
		l, r := h.motor.Target()
		assert.Equal(t, 0.7, l, "drives straight without GPS")
		assert.Equal(t, 0.7, r)
	}
	h.tick(2 * time.Second)

	assert.Equal(t, StateEscapingRandom, h.state())
	assert.Equal(t, EventStuckBlind, h.last().Event)
}

func TestNavigatingWithoutGoalHolds(t *testing.T) {
	h := newHarness(t, testConfig(), StateNavigating)
	h.sensors.hasFix = true
	h.sensors.fix = fixAt(0, 100)

	for i := 0; i < 5; i++ {
		h.tick(2 * time.Second)
	}
	assert.Equal(t, StateNavigating, h.state())
	assert.True(t, h.motor.Idle())
}

func TestNavigatingSteersTowardGoal(t *testing.T) {
	h := newHarness(t, withGoal(testConfig()), StateNavigating)
	h.sensors.hasFix = true

	h.sensors.fix = fixAt(-100, 0)
	h.tick(2 * time.Second)
	h.sensors.fix = fixAt(-100, 2)
	h.tick(2 * time.Second)

	// Heading north with the goal to the east.
	l, r := h.motor.Target()
	assert.Equal(t, 1.0, l)
	assert.Zero(t, r, "the inner wheel slows but never reverses")
	assert.Equal(t, StateNavigating, h.state())
}

func TestNavigatingSteersGentlyWhenNearlyAligned(t *testing.T) {
	h := newHarness(t, withGoal(testConfig()), StateNavigating)
	h.sensors.hasFix = true

	h.sensors.fix = fixAt(-100, 0)
	h.tick(2 * time.Second)
	h.sensors.fix = fixAt(-98, 0.3)
	h.tick(2 * time.Second)

	// Heading about 81 degrees with the goal at 90.
	l, r := h.motor.Target()
	assert.Greater(t, l, r)
	assert.Less(t, l, 1.0)
	assert.Greater(t, r, 0.0)
	assert.InDelta(t, 1.4, l+r, 1e-9)
}

func TestNavigatingPivotsWhenHeadingAway(t *testing.T) {
	h := newHarness(t, withGoal(testConfig()), StateNavigating)
	h.sensors.hasFix = true

	h.sensors.fix = fixAt(0, -100)
	h.tick(2 * time.Second)
	h.sensors.fix = fixAt(0, -102)
	h.tick(2 * time.Second)

	require.Equal(t, StateTurning, h.state())
	assert.Equal(t, 1, h.mission.Turning.dir)
	assert.InDelta(t, 180, h.mission.Turning.angle, 1e-6)
	l, r := h.motor.Target()
	assert.Equal(t, 0.6, l)
	assert.Equal(t, -0.6, r)
}

func TestArrivalTakesPictures(t *testing.T) {
	sink := &fakeSink{}
	h := newHarness(t, withGoal(testConfig()), StateNavigating, func(o *Options) { o.Pictures = sink })
	h.sensors.hasFix = true
	h.sensors.fix = fixAt(0.5, 0.5)
	h.sensors.frame = &core.Frame{Seq: 1, JPEG: []byte{0xff, 0xd8}}

	h.tick(2 * time.Second)
	require.Equal(t, StateCompleted, h.state())
	assert.True(t, h.sched.IsActive(h.mission.Picture))
	assert.True(t, h.motor.Idle())

	for i := 0; i < 3; i++ {
		h.tick(time.Second)
	}
	assert.Len(t, sink.names, 3)
	assert.True(t, strings.HasPrefix(sink.names[0], h.mission.Supervisor.Memory().RunID+"/"))
	assert.False(t, h.sched.IsActive(h.mission.Picture), "series ends on its own")
}

func TestEscapingWithoutCameraFallsBackToRandom(t *testing.T) {
	cfg := testConfig()
	cfg.Escaping.Backward = time.Second
	cfg.Escaping.Pause = time.Second
	cfg.Escaping.Turn = time.Second
	cfg.Escaping.Pivot = time.Second
	cfg.Escaping.Forward = time.Second
	classifier := vision.NewClassifier(vision.DefaultConfig(), nil, rand.New(rand.NewPCG(3, 4)))
	h := newHarness(t, cfg, StateEscaping, func(o *Options) { o.Vision = classifier })

	turns := map[int]int{}
	for i := 0; i < 60 && h.state() == StateEscaping; i++ {
		h.tick(500 * time.Millisecond)
		esc := h.mission.Escaping
		if h.state() == StateEscaping && esc.st.step == escCameraTurnHere {
			turns[esc.Tries()] = esc.Direction()
		}
	}

	assert.Equal(t, StateEscapingRandom, h.state())
	assert.Equal(t, EventFallback, h.last().Event)
	assert.Equal(t, 3, h.mission.Escaping.Tries())
	require.Len(t, turns, 3)
	for try, dir := range turns {
		assert.Contains(t, []int{-1, 1}, dir, "try %d", try)
	}
}

func TestEscapingUsesCameraExit(t *testing.T) {
	cfg := testConfig()
	cfg.Escaping.Backward = time.Second
	cfg.Escaping.Pause = time.Second
	h := newHarness(t, cfg, StateEscaping)
	h.sensors.frame = &core.Frame{}
	h.vision.exit = -1

	for i := 0; i < 10 && h.mission.Escaping.st.step != escCameraTurn; i++ {
		h.tick(500 * time.Millisecond)
	}

	require.Equal(t, escCameraTurn, h.mission.Escaping.st.step)
	l, r := h.motor.Target()
	assert.Equal(t, -1.0, l)
	assert.Equal(t, 1.0, r)
}

func TestEscapingRandomIsBounded(t *testing.T) {
	cfg := testConfig()
	cfg.Escaping.Backward = time.Second
	cfg.Escaping.Turn = time.Second
	cfg.Escaping.Forward = time.Second
	h := newHarness(t, cfg, StateEscapingRandom)

	h.runWhile(StateEscapingRandom, 500*time.Millisecond, 60)

	assert.Equal(t, StateNavigating, h.state())
	assert.Equal(t, 3, h.mission.EscapingRandom.tries)
}

func TestEscapingRandomStopsOnProgress(t *testing.T) {
	cfg := testConfig()
	cfg.Escaping.Backward = time.Second
	cfg.Escaping.Turn = time.Second
	cfg.Escaping.Forward = time.Second
	h := newHarness(t, cfg, StateEscapingRandom)

	h.tick(500 * time.Millisecond)
	h.sensors.left, h.sensors.right = 500, 500
	h.runWhile(StateEscapingRandom, 500*time.Millisecond, 60)

	assert.Equal(t, StateNavigating, h.state())
	assert.Equal(t, 1, h.mission.EscapingRandom.tries)
}

func TestPredictingTriggersAvoiding(t *testing.T) {
	cfg := DefaultConfig()
	h := newHarness(t, cfg, StateNavigating)
	h.sensors.frame = &core.Frame{}
	h.vision.wadachi = true
	h.vision.exit = -1

	h.tick(100 * time.Millisecond)
	require.Equal(t, StateAvoiding, h.state())
	l, r := h.motor.Target()
	assert.Equal(t, -0.6, l)
	assert.Equal(t, 0.6, r)

	h.vision.wadachi = false
	h.sensors.att.Yaw = 350
	h.tick(100 * time.Millisecond)
	h.sensors.att.Yaw = 40
	h.tick(100 * time.Millisecond)
	l, _ = h.motor.Target()
	assert.Equal(t, 0.7, l, "forward past the rut")

	for i := 0; i < 3; i++ {
		h.tick(time.Second)
	}
	assert.Equal(t, StateNavigating, h.state())
	assert.Equal(t, StateAvoiding, h.last().From)
}

func TestPredictingCanBeDisabled(t *testing.T) {
	h := newHarness(t, DefaultConfig(), StateNavigating)
	h.sensors.frame = &core.Frame{}
	h.vision.wadachi = true

	var out bytes.Buffer
	require.NoError(t, h.sched.Dispatch(&out, "predicting disable"))
	h.tick(100 * time.Millisecond)

	assert.Equal(t, StateNavigating, h.state())
	assert.False(t, h.mission.Predicting.Enabled())
}

func TestTurningFromConsole(t *testing.T) {
	h := newHarness(t, testConfig(), StateNavigating)

	var out bytes.Buffer
	require.NoError(t, h.sched.Dispatch(&out, "turning left 30"))
	require.Equal(t, StateTurning, h.state())
	assert.True(t, h.last().Forced)
	l, r := h.motor.Target()
	assert.Equal(t, -0.6, l)
	assert.Equal(t, 0.6, r)

	h.tick(100 * time.Millisecond)
	h.sensors.att.Yaw = -35
	h.tick(100 * time.Millisecond)

	assert.Equal(t, StateNavigating, h.state())
	assert.Equal(t, EventRecovered, h.last().Event)
}

func TestWakingRetriesThenGivesUp(t *testing.T) {
	h := newHarness(t, testConfig(), StateWaking)
	h.sensors.att.Roll = 90

	l, _ := h.motor.Target()
	assert.Equal(t, 1.0, l)
	for i := 0; i < 7; i++ {
		h.tick(500 * time.Millisecond)
	}
	l, _ = h.motor.Target()
	assert.Equal(t, -1.0, l, "second kick reverses")

	h.runWhile(StateWaking, 500*time.Millisecond, 40)
	assert.Equal(t, StateNavigating, h.state())
	assert.Equal(t, 3, h.mission.Waking.retries)
}

func TestWakingVerifiesUpright(t *testing.T) {
	cfg := withGoal(testConfig())
	h := newHarness(t, cfg, StateNavigating)
	h.sensors.att.Roll = 90

	h.tick(100 * time.Millisecond)
	require.Equal(t, StateWaking, h.state())
	h.sensors.att.Roll = 5

	h.runWhile(StateWaking, 500*time.Millisecond, 40)
	assert.Equal(t, StateNavigating, h.state())
	assert.Zero(t, h.mission.Waking.retries)
}

func TestColorAccessingArrives(t *testing.T) {
	h := newHarness(t, testConfig(), StateColorAccessing)
	h.sensors.frame = &core.Frame{}
	h.vision.blob = &core.Blob{CX: 0.5, Area: 0.1}

	h.tick(100 * time.Millisecond) // starting
	h.tick(100 * time.Millisecond) // checking
	l, r := h.motor.Target()
	assert.Equal(t, 0.3, l, "centring turn toward the marker")
	assert.Equal(t, -0.3, r)

	h.vision.blob = &core.Blob{CX: 0, Area: 0.3}
	h.runWhile(StateColorAccessing, 100*time.Millisecond, 20)

	assert.Equal(t, StateCompleted, h.state())
	assert.Equal(t, StateColorAccessing, h.last().From)
}

func TestColorAccessingRampsDownOnStraightRuns(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg, StateColorAccessing)
	h.sensors.frame = &core.Frame{}
	h.vision.blob = &core.Blob{CX: 0, Area: 0.1}
	ca := h.mission.ColorAccessing
	ca.power = 0.5

	h.tick(100 * time.Millisecond) // starting
	h.tick(100 * time.Millisecond) // checking: first run
	require.Equal(t, colStoppingLong, ca.st.step)

	h.sensors.left, h.sensors.right = 100, 100
	for i := 0; i < 15; i++ {
		h.tick(100 * time.Millisecond)
	}
	require.Equal(t, colChecking, ca.st.step)
	h.tick(100 * time.Millisecond)

	assert.Equal(t, colDeaccelerate, ca.st.step)
	assert.InDelta(t, 0.45, ca.power, 1e-9)
}

func TestColorAccessingGivesUpAfterRenavigations(t *testing.T) {
	cfg := testConfig()
	cfg.Color.MaxTime = 10 * time.Second
	cfg.Color.Displace = 2 * time.Second
	cfg.Color.MaxRenav = 2
	h := newHarness(t, cfg, StateColorAccessing)
	h.sensors.frame = &core.Frame{}
	mem := h.mission.Supervisor.Memory()

	for round := 1; round <= 3; round++ {
		if round > 1 {
			require.NoError(t, h.mission.Supervisor.Fire(EventApproach, Request{}))
		}
		for i := 0; i < 20; i++ {
			h.tick(500 * time.Millisecond)
		}
		require.Equal(t, "displace", h.mission.ColorAccessing.Step(), "round %d", round)
		l, _ := h.motor.Target()
		assert.Equal(t, 0.8, l)

		h.runWhile(StateColorAccessing, 500*time.Millisecond, 10)
		assert.Equal(t, round, mem.Renavigations)
		if round <= 2 {
			assert.Equal(t, StateNavigating, h.state(), "round %d", round)
			assert.Equal(t, EventRenavigate, h.last().Event)
		}
	}

	assert.Equal(t, StateAborted, h.state())
	assert.Equal(t, EventGiveUp, h.last().Event)
	assert.True(t, h.motor.Idle())
}

func TestColorAccessingHomesOnGPSWithoutCamera(t *testing.T) {
	h := newHarness(t, withGoal(testConfig()), StateColorAccessing)
	h.sensors.hasFix = true

	// Start 4.2 m south-east of the goal, facing east and away from it.
	x, y, heading := 3.0, -3.0, 90.0
	start := math.Hypot(x, y)
	closest := start

	const dt = 100 * time.Millisecond
	for i := 0; i < 900 && h.state() == StateColorAccessing; i++ {
		h.sensors.fix = fixAt(x, y)
		h.tick(dt)

		// 1 m/s and 200 deg/s per unit of power.
		l, r := h.motor.Target()
		heading += (l - r) * 200 * dt.Seconds()
		rad := heading * math.Pi / 180
		x += (l + r) / 2 * dt.Seconds() * math.Sin(rad)
		y += (l + r) / 2 * dt.Seconds() * math.Cos(rad)
		closest = math.Min(closest, math.Hypot(x, y))
		require.NotEqual(t, "displace", h.mission.ColorAccessing.Step(), "tick %d", i)
	}

	assert.Equal(t, StateCompleted, h.state())
	assert.Equal(t, EventArrived, h.last().Event)
	assert.Equal(t, StateColorAccessing, h.last().From)
	assert.LessOrEqual(t, closest, 1.5)
	assert.Zero(t, h.mission.Supervisor.Memory().Renavigations)
}

func TestColorAccessingWaitsWithoutCameraOrFix(t *testing.T) {
	h := newHarness(t, withGoal(testConfig()), StateColorAccessing)

	for i := 0; i < 10; i++ {
		h.tick(100 * time.Millisecond)
	}

	assert.Equal(t, StateColorAccessing, h.state())
	assert.Equal(t, "checking", h.mission.ColorAccessing.Step())
	l, r := h.motor.Target()
	assert.Zero(t, l)
	assert.Zero(t, r)
}

func TestSupervisorRejectsInvalidEvents(t *testing.T) {
	h := newHarness(t, testConfig(), StateWaiting)
	sup := h.mission.Supervisor

	assert.ErrorIs(t, sup.Fire(EventArrived, Request{}), ErrInvalidTransition)
	assert.ErrorIs(t, sup.Fire("teleport", Request{}), ErrInvalidTransition)
	assert.ErrorIs(t, sup.Goto("orbit", Request{}), ErrInvalidTransition)
	assert.Equal(t, StateWaiting, sup.Current())

	require.NoError(t, sup.Goto(StateAborted, Request{}))
	assert.False(t, h.sched.IsActive(h.mission.Waiting))
	assert.True(t, h.last().Forced)
}

func TestSupervisorConsole(t *testing.T) {
	h := newHarness(t, withGoal(testConfig()), StateWaiting)

	var out bytes.Buffer
	require.NoError(t, h.sched.Dispatch(&out, "mission"))
	assert.Contains(t, out.String(), "waiting")
	assert.Contains(t, out.String(), "goal 35.0000000,139.0000000")

	out.Reset()
	require.NoError(t, h.sched.Dispatch(&out, "mission goto navigating"))
	assert.Equal(t, StateNavigating, h.state())
	assert.True(t, h.sched.IsActive(h.mission.Navigating))

	out.Reset()
	assert.ErrorIs(t, h.sched.Dispatch(&out, "mission event light"), scheduler.ErrUnknownCommand)
	assert.Contains(t, out.String(), "invalid mission transition")

	out.Reset()
	require.NoError(t, h.sched.Dispatch(&out, "navigating goal 35.5 139.5"))
	assert.Equal(t, core.Fix{Lat: 35.5, Lon: 139.5}, h.mission.Supervisor.Memory().Goal)

	out.Reset()
	require.NoError(t, h.sched.Dispatch(&out, "navigating here"))
	assert.Contains(t, out.String(), "no GPS fix")
}

func TestSensorLogging(t *testing.T) {
	var buf bytes.Buffer
	h := newHarness(t, testConfig(), StateTesting, func(o *Options) { o.SensorLog = &buf })
	h.sensors.hasFix = true
	h.sensors.fix = goal

	h.tick(time.Second)
	h.tick(time.Second)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, sensorLogHeader, lines[0])
	assert.Contains(t, lines[1], ",true,35.0000000,139.0000000,")
	assert.Equal(t, 2, h.mission.SensorLog.Lines())
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Validate())

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--mission.waiting.light-count=5", "--mission.falling.rule=all", "--mission.color.max-time=30s"}))
	assert.Equal(t, 5, cfg.Waiting.LightCount)
	assert.Equal(t, 30*time.Second, cfg.Color.MaxTime)

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "mission.falling.rule")
}

type idleTask struct{ scheduler.Base }

type brokenTask struct{ scheduler.Base }

func (*brokenTask) Init(time.Time) error { return errors.New("camera offline") }

func missionTask(state string) scheduler.Base {
	return scheduler.NewBase(state, scheduler.KindMission, scheduler.PriorityMission, 0)
}

func TestSupervisorAbortsWhenTaskCannotStart(t *testing.T) {
	newSupervisor := func(t *testing.T, initial string) (*scheduler.Scheduler, *Supervisor, *idleTask) {
		sched := scheduler.New(testingclock.NewFakeClock(time.Now()), &fakeSensors{})
		nav := &idleTask{Base: missionTask(StateNavigating)}
		esc := &brokenTask{Base: missionTask(StateEscaping)}
		require.NoError(t, sched.Register(nav, esc))

		sup, err := NewSupervisor(sched, initial)
		require.NoError(t, err)
		sup.Bind(StateNavigating, nav)
		sup.Bind(StateEscaping, esc)
		return sched, sup, nav
	}

	t.Run("on transition", func(t *testing.T) {
		sched, sup, nav := newSupervisor(t, StateNavigating)
		var events []string
		sup.OnTransition(func(tr Transition) { events = append(events, tr.Event) })
		require.NoError(t, sup.Start())
		require.True(t, sched.IsActive(nav))

		err := sup.Fire(EventStuck, Request{})
		assert.ErrorIs(t, err, scheduler.ErrInitFailed)
		assert.Equal(t, StateAborted, sup.Current())
		assert.Equal(t, []string{"boot", EventStuck, EventFault}, events)
		assert.False(t, sched.IsActive(nav))
	})

	t.Run("on start", func(t *testing.T) {
		_, sup, _ := newSupervisor(t, StateEscaping)
		assert.ErrorIs(t, sup.Start(), scheduler.ErrInitFailed)
		assert.Equal(t, StateAborted, sup.Current())
	})
}

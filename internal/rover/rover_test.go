package rover

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/rover/internal/mission"
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/rover/hal"
	"github.com/autopeer-io/rover/pkg/options"
)

func testConfig(clk *testingclock.FakeClock) *Config {
	ro := NewOptions()
	ro.Seed = 1

	mc := mission.DefaultConfig()
	mc.Navigating.GoalLat, mc.Navigating.GoalLon = ro.Sim.Goal.Lat, ro.Sim.Goal.Lon

	httpOpts := options.NewHttpOptions()
	httpOpts.Enabled = false
	grpcOpts := options.NewGrpcOptions()
	grpcOpts.Enabled = false

	return &Config{
		Rover:       ro,
		Mission:     mc,
		MqttOptions: options.NewMqttOptions(),
		HttpOptions: httpOpts,
		GrpcOptions: grpcOpts,
		S3Options:   options.NewS3Options(),
		Clock:       clk,
	}
}

func TestSimulatedFlightReachesNavigation(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := testConfig(clk)
	cfg.Rover.SensorLogDir = t.TempDir()

	r, err := cfg.NewRover()
	require.NoError(t, err)
	defer r.close()

	var events []string
	r.Mission().Supervisor.OnTransition(func(tr mission.Transition) {
		events = append(events, tr.Event)
	})
	require.NoError(t, r.Boot())
	assert.Equal(t, mission.StateWaiting, r.Mission().Supervisor.Current())

	for i := 0; i < 3000 && r.Mission().Supervisor.Current() != mission.StateNavigating; i++ {
		clk.Step(50 * time.Millisecond)
		r.Scheduler().Tick()
	}

	require.Equal(t, mission.StateNavigating, r.Mission().Supervisor.Current(), "events %v", events)
	assert.Equal(t, []string{"boot", mission.EventLight, mission.EventLanded, mission.EventSeparated}, events)

	_, err = os.Stat(filepath.Join(cfg.Rover.SensorLogDir, "rover-sim-001-sensors.log"))
	assert.NoError(t, err)
}

func TestRunAndShutdown(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := testConfig(clk)
	cfg.Rover.ID = "r7"

	r, err := cfg.NewRover()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	goal := core.Fix{Lat: 40.2, Lon: -119.1}
	require.NoError(t, r.SetGoal(ctx, goal))

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, goal, r.Mission().Supervisor.Memory().Goal)
	for _, task := range r.Scheduler().Tasks() {
		assert.False(t, r.Scheduler().IsActive(task), task.Name())
	}
	buzzer, radio, servo := r.World().Outputs()
	assert.False(t, buzzer)
	assert.False(t, radio)
	assert.Zero(t, servo)
}

func TestNewRoverRejectsBadHAL(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())

	cfg := testConfig(clk)
	cfg.Rover.HAL = hal.KindRPi
	cfg.Rover.ID = "r1"
	_, err := cfg.NewRover()
	assert.ErrorContains(t, err, "enable mqtt")

	cfg = testConfig(clk)
	cfg.Rover.HAL = "arduino"
	_, err = cfg.NewRover()
	assert.ErrorContains(t, err, "unknown hal")
}

func TestOptionsValidate(t *testing.T) {
	assert.Empty(t, NewOptions().Validate())

	o := NewOptions()
	o.HAL = "arduino"
	o.TickPeriod = 0
	o.StartState = "flying"
	assert.Len(t, o.Validate(), 3)

	o = NewOptions()
	o.HAL = hal.KindRPi
	o.Pins.Servo = 17
	errs := o.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "rover.pins")
}

// Package rover assembles the mission controller: the HAL, the scheduler and
// its tasks, telemetry, picture storage and the ground station servers.
package rover

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/rover/internal/actuator"
	"github.com/autopeer-io/rover/internal/mission"
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/rover/hal"
	"github.com/autopeer-io/rover/internal/rover/sim"
	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/internal/server"
	"github.com/autopeer-io/rover/internal/storage"
	"github.com/autopeer-io/rover/internal/telemetry"
	"github.com/autopeer-io/rover/pkg/log"
	"github.com/autopeer-io/rover/pkg/mqtt"
	"github.com/autopeer-io/rover/pkg/mqtt/topic"
)

const (
	disconnectTimeout = 2 * time.Second
	setGoalTimeout    = 5 * time.Second
)

type Rover struct {
	cfg   *Config
	clock clock.WithTicker

	hal    core.HAL
	world  *sim.World
	bridge *hal.Bridge

	sched   *scheduler.Scheduler
	motor   *actuator.Motor
	servo   *actuator.Servo
	xbee    *actuator.XBeeSleep
	buzzer  *actuator.Buzzer
	mission *mission.Mission

	reporter  *telemetry.Reporter
	client    mqtt.Client
	topics    *topic.TopicBuilder
	publisher *telemetry.Publisher
	uploader  *storage.Uploader
	sensorLog *lumberjack.Logger
	servers   *server.Manager
}

// Mission returns the mission tasks.
func (r *Rover) Mission() *mission.Mission { return r.mission }

// Scheduler returns the task scheduler.
func (r *Rover) Scheduler() *scheduler.Scheduler { return r.sched }

// World returns the simulated world of the mock HAL, nil on hardware.
func (r *Rover) World() *sim.World { return r.world }

// Boot activates the actuators and enters the initial mission state. It must
// be called before the scheduler runs. Run calls it.
func (r *Rover) Boot() error {
	for _, t := range []scheduler.Task{r.motor, r.servo, r.xbee, r.buzzer} {
		if err := r.sched.Activate(t); err != nil {
			return err
		}
	}
	return r.mission.Start()
}

// Run flies the mission until ctx ends. The hardware is released on return.
func (r *Rover) Run(ctx context.Context) error {
	defer r.close()

	log.Info("Starting rover-mission", "rover", r.hal.RoverID())
	if err := r.Boot(); err != nil {
		return err
	}

	if r.client != nil {
		if err := r.client.Start(ctx); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.servers.SetServing(true)
		defer r.servers.SetServing(false)
		return r.sched.Run(ctx, r.cfg.Rover.TickPeriod)
	})
	g.Go(func() error {
		return r.servers.Start(ctx)
	})

	if r.publisher != nil {
		g.Go(func() error {
			return r.publisher.Run(ctx)
		})
	}
	if r.bridge != nil {
		g.Go(func() error {
			if err := r.client.AwaitConnection(ctx); err != nil {
				return nil
			}
			return r.bridge.Subscribe(ctx, r.client, r.topics, r.hal.RoverID())
		})
	}
	if r.uploader != nil {
		g.Go(func() error {
			// A missing store costs the pictures, not the mission.
			if err := r.uploader.Run(ctx); err != nil {
				log.Error(err, "Picture uploads disabled")
			}
			return nil
		})
	}
	if r.cfg.Rover.Console {
		g.Go(func() error {
			return r.sched.Serve(ctx, os.Stdin, os.Stdout)
		})
	}

	err := g.Wait()
	log.Info("Rover shutting down...", "state", r.mission.Supervisor.Current())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// SetGoal replaces the navigation goal from outside the scheduler goroutine.
func (r *Rover) SetGoal(ctx context.Context, goal core.Fix) error {
	ctx, cancel := context.WithTimeout(ctx, setGoalTimeout)
	defer cancel()
	return r.sched.Do(ctx, func() {
		r.mission.Supervisor.SetGoal(goal)
	})
}

func (r *Rover) close() {
	if r.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		r.client.Disconnect(ctx)
		cancel()
	}
	if r.sensorLog != nil {
		if err := r.sensorLog.Close(); err != nil {
			log.Error(err, "Failed to close sensor log")
		}
	}
	if err := r.hal.Close(); err != nil {
		log.Error(err, "Failed to release hal")
	}
}

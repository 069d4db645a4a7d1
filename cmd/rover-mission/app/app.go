package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/viper"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/rover/cmd/rover-mission/app/options"
	"github.com/autopeer-io/rover/internal/rover"
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/pkg/app"
	"github.com/autopeer-io/rover/pkg/log"
)

const (
	commandName = "rover-mission"
	commandDesc = `The rover mission controller flies the whole sequence on board: it waits
for the release, detects the landing, drops the parachute, navigates to the
GPS goal and closes in on the coloured cone with the camera.

All tasks run on one cooperative scheduler. Telemetry and the ground console
go over MQTT; status, metrics and commands are also served over HTTP.`
)

// NewApp creates the rover-mission command.
func NewApp() *app.App {
	opts := options.NewMissionOptions()
	live := &reloader{}
	application := app.NewApp(
		commandName,
		"Launch the rover mission controller",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithConfigWatch(live.reload),
		app.WithRunFunc(run(opts, live)),
	)
	return application
}

func run(opts *options.MissionOptions, live *reloader) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		r, err := cfg.NewRover()
		if err != nil {
			return fmt.Errorf("failed to create rover: %w", err)
		}

		live.attach(ctx, r)
		return r.Run(ctx)
	}
}

// reloader applies the log level and the navigation goal when the config
// file changes. Every other value only takes effect on restart.
type reloader struct {
	mu    sync.Mutex
	ctx   context.Context
	rover *rover.Rover
	last  core.Fix
}

func (w *reloader) attach(ctx context.Context, r *rover.Rover) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ctx, w.rover = ctx, r
	w.last = r.Mission().Supervisor.Memory().Goal
}

func (w *reloader) reload(v *viper.Viper) {
	if lvl := v.GetString("log.level"); lvl != "" && lvl != log.Level() {
		if err := log.SetLevel(lvl); err != nil {
			log.Warn("Ignoring log level from config file", "err", err)
		} else {
			log.Info("Log level updated from config file", "level", lvl)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rover == nil {
		return
	}

	goal := core.Fix{
		Lat: v.GetFloat64("mission.navigating.goal-lat"),
		Lon: v.GetFloat64("mission.navigating.goal-lon"),
	}
	if goal == w.last {
		return
	}
	if goal.Lat < -90 || goal.Lat > 90 || goal.Lon < -180 || goal.Lon > 180 {
		log.Warn("Ignoring invalid goal from config file", "lat", goal.Lat, "lon", goal.Lon)
		return
	}
	if err := w.rover.SetGoal(w.ctx, goal); err != nil {
		log.Error(err, "Failed to update the goal", "lat", goal.Lat, "lon", goal.Lon)
		return
	}
	w.last = goal
	log.Info("Goal updated from config file", "lat", goal.Lat, "lon", goal.Lon)
}

package mission

import (
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/scheduler"
)

// Options are the collaborators of a mission.
type Options struct {
	// Initial is the state entered by Start.
	Initial string
	Devices Devices
	Vision  core.Vision
	Sensors core.Sensors
	// Rand drives every random choice. A nil Rand is seeded from the clock.
	Rand *rand.Rand
	// Pictures stores the pictures taken at the goal. Nil drops them.
	Pictures PictureSink
	// SensorLog receives the sensor log lines. Nil disables sensor logging.
	SensorLog io.Writer
}

// Mission is the set of mission tasks bound to one supervisor.
type Mission struct {
	Supervisor *Supervisor

	Testing        *Testing
	Waiting        *Waiting
	Falling        *Falling
	Separating     *Separating
	Navigating     *Navigating
	Escaping       *Escaping
	EscapingRandom *EscapingRandom
	Avoiding       *Avoiding
	Turning        *Turning
	Waking         *Waking
	ColorAccessing *ColorAccessing

	Predicting *Predicting
	Picture    *PictureTaking
	SensorLog  *SensorLogging

	sched *scheduler.Scheduler
}

// New builds the mission tasks and registers them with sched.
func New(cfg *Config, sched *scheduler.Scheduler, opts Options) (*Mission, error) {
	if opts.Initial == "" {
		opts.Initial = StateWaiting
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	sup, err := NewSupervisor(sched, opts.Initial)
	if err != nil {
		return nil, err
	}
	if cfg.Navigating.GoalLat != 0 || cfg.Navigating.GoalLon != 0 {
		sup.SetGoal(core.Fix{Lat: cfg.Navigating.GoalLat, Lon: cfg.Navigating.GoalLon})
	}

	e := &env{
		cfg:     cfg,
		sup:     sup,
		dev:     opts.Devices,
		vision:  opts.Vision,
		sensors: opts.Sensors,
		rnd:     opts.Rand,
	}
	m := &Mission{
		Supervisor:     sup,
		Testing:        newTesting(e),
		Waiting:        newWaiting(e),
		Falling:        newFalling(e),
		Separating:     newSeparating(e),
		Navigating:     newNavigating(e),
		Escaping:       newEscaping(e),
		EscapingRandom: newEscapingRandom(e),
		Avoiding:       newAvoiding(e),
		Turning:        newTurning(e),
		Waking:         newWaking(e),
		ColorAccessing: newColorAccessing(e),
		Predicting:     newPredicting(e),
		Picture:        newPictureTaking(e, opts.Pictures),
		sched:          sched,
	}
	if opts.SensorLog != nil {
		m.SensorLog = newSensorLogging(cfg.SensorLog.Interval, opts.SensorLog)
	}

	for _, t := range m.states() {
		sup.Bind(t.Name(), t)
	}
	sup.OnDone(func(state string) {
		e.dev.Motor.Brake()
		if state == StateCompleted {
			if err := sched.Activate(m.Picture); err != nil {
				sup.log.Error(err, "Failed to start goal pictures")
			}
			return
		}
		e.dev.Buzzer.StartCount(200, 5)
	})

	if err := sched.Register(m.Tasks()...); err != nil {
		return nil, fmt.Errorf("register mission tasks: %w", err)
	}
	return m, nil
}

func (m *Mission) states() []scheduler.Task {
	return []scheduler.Task{
		m.Testing, m.Waiting, m.Falling, m.Separating, m.Navigating,
		m.Escaping, m.EscapingRandom, m.Avoiding, m.Turning, m.Waking,
		m.ColorAccessing,
	}
}

// Tasks returns every mission task, states first.
func (m *Mission) Tasks() []scheduler.Task {
	tasks := append(m.states(), m.Supervisor, m.Predicting, m.Picture)
	if m.SensorLog != nil {
		tasks = append(tasks, m.SensorLog)
	}
	return tasks
}

// Start activates the background mission tasks and enters the initial state.
func (m *Mission) Start() error {
	if err := m.sched.Activate(m.Predicting); err != nil {
		return err
	}
	if m.SensorLog != nil {
		if err := m.sched.Activate(m.SensorLog); err != nil {
			return err
		}
	}
	return m.Supervisor.Start()
}

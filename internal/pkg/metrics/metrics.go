package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SchedulerTicks counts completed scheduler ticks.
	SchedulerTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rover_scheduler_ticks_total",
			Help: "Total number of scheduler ticks.",
		},
	)

	// TickDuration records how long each tick took to update every due task.
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rover_tick_duration_seconds",
			Help:    "Time spent running the due tasks of one tick.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// TaskUpdates counts update callbacks per task.
	TaskUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_task_updates_total",
			Help: "Total number of update callbacks per task.",
		},
		[]string{"task"},
	)

	// TaskActivations counts activation attempts. result: ok/failed
	TaskActivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_task_activations_total",
			Help: "Total number of task activations.",
		},
		[]string{"task", "result"},
	)

	// MissionTransitions counts state changes of the mission supervisor.
	MissionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_mission_transitions_total",
			Help: "Total number of mission state transitions.",
		},
		[]string{"from", "to", "event"},
	)

	// MissionState is 1 for the current mission state and 0 for the others.
	MissionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rover_mission_state",
			Help: "Current mission state (1 = current).",
		},
		[]string{"state"},
	)

	// ConsoleCommands counts console lines. result: ok/unknown/failed
	ConsoleCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_console_commands_total",
			Help: "Total number of console commands.",
		},
		[]string{"result"},
	)

	// PicturesUploaded counts picture uploads. status: success/failed/dropped
	PicturesUploaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_pictures_uploaded_total",
			Help: "Total number of mission pictures handed to the object store.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		SchedulerTicks,
		TickDuration,
		TaskUpdates,
		TaskActivations,
		MissionTransitions,
		MissionState,
		ConsoleCommands,
		PicturesUploaded,
	)
}

package mission

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/pkg/log"
)

// PictureTaking takes a series of pictures and hands them to the sink.
// It deactivates itself once the series is done.
type PictureTaking struct {
	scheduler.Base
	*env
	log  log.Logger
	sink PictureSink

	attempts int
	taken    int
}

func newPictureTaking(e *env, sink PictureSink) *PictureTaking {
	return &PictureTaking{
		Base: scheduler.NewBase("picture", scheduler.KindBackground, scheduler.PriorityBackground, e.cfg.Picture.Interval),
		env:  e,
		log:  log.WithName("picture"),
		sink: sink,
	}
}

func (s *PictureTaking) Init(time.Time) error {
	s.attempts, s.taken = 0, 0
	s.dev.Buzzer.StartCount(50, 2)
	return nil
}

// Taken returns the number of pictures stored by the current series.
func (s *PictureTaking) Taken() int { return s.taken }

func (s *PictureTaking) Update(t *scheduler.Tick) {
	s.attempts++
	frame := t.Snapshot.Frame
	switch {
	case frame == nil || len(frame.JPEG) == 0:
		s.log.Warn("Camera unavailable, picture skipped", "attempt", s.attempts)
	case s.sink == nil:
		s.log.Info("No picture store configured, picture dropped", "seq", frame.Seq)
	default:
		s.taken++
		name := fmt.Sprintf("%s/%s-%03d.jpg", s.sup.Memory().RunID, s.sup.Current(), s.taken)
		s.sink.Save(name, frame.JPEG)
		s.log.Info("Picture taken", "name", name, "bytes", len(frame.JPEG))
	}

	if s.attempts >= s.cfg.Picture.Count {
		s.sup.sched.Defer(func() { s.sup.sched.Deactivate(s) })
	}
}

func (s *PictureTaking) Command(out io.Writer, args []string) bool {
	if len(args) == 1 {
		if err := s.sup.sched.Activate(s); err != nil {
			fmt.Fprintf(out, "%v\n", err)
			return false
		}
		fmt.Fprintln(out, "Command Executed!")
		return true
	}
	fmt.Fprintln(out, "picture : take pictures")
	return false
}

// SensorLogging appends one line of readings to w every interval.
type SensorLogging struct {
	scheduler.Base
	w     io.Writer
	log   log.Logger
	lines int
}

func newSensorLogging(interval time.Duration, w io.Writer) *SensorLogging {
	return &SensorLogging{
		Base: scheduler.NewBase("sensorlog", scheduler.KindBackground, scheduler.PriorityBackground, interval),
		w:    w,
		log:  log.WithName("sensorlog"),
	}
}

const sensorLogHeader = "time,seq,fix,lat,lon,alt,roll,pitch,yaw,pressure,light,pulse_left,pulse_right"

func (s *SensorLogging) Init(time.Time) error {
	if s.w == nil {
		return errors.New("no sensor log output configured")
	}
	_, err := fmt.Fprintln(s.w, sensorLogHeader)
	return err
}

// Lines returns the number of lines written since the task was created.
func (s *SensorLogging) Lines() int { return s.lines }

func (s *SensorLogging) Update(t *scheduler.Tick) {
	snap := t.Snapshot
	_, err := fmt.Fprintf(s.w, "%s,%d,%t,%.7f,%.7f,%.1f,%.2f,%.2f,%.2f,%.2f,%t,%d,%d\n",
		t.Now.UTC().Format(time.RFC3339Nano), t.Seq,
		snap.HasFix, snap.Fix.Lat, snap.Fix.Lon, snap.Fix.Alt,
		snap.Attitude.Roll, snap.Attitude.Pitch, snap.Attitude.Yaw,
		snap.Pressure, snap.Light, snap.PulseLeft, snap.PulseRight)
	if err != nil {
		s.log.Error(err, "Failed to write sensor log line")
		return
	}
	s.lines++
}

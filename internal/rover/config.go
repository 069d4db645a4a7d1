package rover

import (
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/rover/internal/actuator"
	"github.com/autopeer-io/rover/internal/mission"
	"github.com/autopeer-io/rover/internal/rover/hal"
	"github.com/autopeer-io/rover/internal/rover/sim"
	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/internal/server"
	"github.com/autopeer-io/rover/internal/storage"
	"github.com/autopeer-io/rover/internal/telemetry"
	"github.com/autopeer-io/rover/internal/vision"
	"github.com/autopeer-io/rover/pkg/log"
	"github.com/autopeer-io/rover/pkg/mqtt"
	"github.com/autopeer-io/rover/pkg/mqtt/topic"
	"github.com/autopeer-io/rover/pkg/options"
)

type Config struct {
	Rover       *Options
	Mission     *mission.Config
	MqttOptions *options.MqttOptions
	HttpOptions *options.HttpOptions
	GrpcOptions *options.GrpcOptions
	S3Options   *options.S3Options

	// Clock drives the scheduler and the simulated world. Nil uses the wall clock.
	Clock clock.WithTicker
}

// NewRover builds the HAL and every task of the mission. Nothing runs until Run.
func (cfg *Config) NewRover() (*Rover, error) {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	r := &Rover{cfg: cfg, clock: clk}
	if err := r.initHAL(); err != nil {
		return nil, err
	}
	id := r.hal.RoverID()

	r.sched = scheduler.New(clk, r.hal.Sensors())
	r.motor = actuator.NewMotor(cfg.Rover.Motor, r.hal.Motors())
	r.servo = actuator.NewServo(cfg.Rover.Servo, r.hal.Servo())
	r.xbee = actuator.NewXBeeSleep(r.hal.RadioSleep())
	r.buzzer = actuator.NewBuzzer(r.hal.Buzzer())

	seed := cfg.Rover.Seed
	if seed == 0 {
		seed = uint64(clk.Now().UnixNano())
	}
	rnd := rand.New(rand.NewPCG(seed, seed>>1))

	classifier := vision.NewClassifier(cfg.Rover.Vision, r.buzzer, rnd)
	if err := r.sched.Register(r.motor, r.servo, r.xbee, r.buzzer, vision.NewTask(classifier, r.hal.Sensors())); err != nil {
		r.hal.Close()
		return nil, err
	}

	var pictures mission.PictureSink
	if cfg.S3Options != nil && cfg.S3Options.Enabled {
		provider, err := storage.NewMinIOProvider(cfg.S3Options)
		if err != nil {
			r.hal.Close()
			return nil, err
		}
		r.uploader = storage.NewUploader(provider, id, cfg.S3Options.UploadTimeout)
		pictures = r.uploader
	}

	var sensorLog io.Writer
	if dir := cfg.Rover.SensorLogDir; dir != "" {
		r.sensorLog = &lumberjack.Logger{
			Filename:   filepath.Join(dir, id+"-sensors.log"),
			MaxSize:    cfg.Rover.SensorLogMaxSizeMB,
			MaxBackups: cfg.Rover.SensorLogMaxBackups,
		}
		sensorLog = r.sensorLog
	}

	m, err := mission.New(cfg.Mission, r.sched, mission.Options{
		Initial:   cfg.Rover.StartState,
		Devices:   mission.Devices{Motor: r.motor, Servo: r.servo, Buzzer: r.buzzer, Radio: r.xbee},
		Vision:    classifier,
		Sensors:   r.hal.Sensors(),
		Rand:      rnd,
		Pictures:  pictures,
		SensorLog: sensorLog,
	})
	if err != nil {
		r.close()
		return nil, err
	}
	r.mission = m
	r.reporter = telemetry.NewReporter(id, r.sched, m.Supervisor, r.hal.Sensors())

	if cfg.MqttOptions != nil && cfg.MqttOptions.Enabled {
		if err := r.initMqtt(id); err != nil {
			r.close()
			return nil, err
		}
	}

	r.servers = server.NewManager(&server.Config{
		HttpOptions: cfg.HttpOptions,
		GrpcOptions: cfg.GrpcOptions,
	}, r.reporter)

	log.Info("Rover assembled", "rover", id, "hal", cfg.Rover.HAL, "state", cfg.Rover.StartState,
		"tasks", len(r.sched.Tasks()), "mqtt", r.client != nil, "pictures", r.uploader != nil)
	return r, nil
}

func (r *Rover) initHAL() error {
	opts := r.cfg.Rover
	switch opts.HAL {
	case hal.KindMock:
		r.world = sim.New(opts.Sim, r.clock)
		r.hal = hal.NewMock(opts.ID, r.world)
	case hal.KindRPi:
		if opts.ID == "" {
			return fmt.Errorf("rover.id is required with the %s HAL", hal.KindRPi)
		}
		if r.cfg.MqttOptions == nil || !r.cfg.MqttOptions.Enabled {
			return fmt.Errorf("the %s HAL reads its sensors over mqtt, enable mqtt", hal.KindRPi)
		}
		r.bridge = hal.NewBridge(r.clock, opts.MaxFixAge, opts.MaxFrameAge)
		h, err := hal.NewRPi(opts.ID, opts.Pins, r.bridge)
		if err != nil {
			return fmt.Errorf("failed to init hal: %w", err)
		}
		r.hal = h
	default:
		return fmt.Errorf("unknown hal %q", opts.HAL)
	}
	return nil
}

func (r *Rover) initMqtt(id string) error {
	opts := r.cfg.MqttOptions
	r.topics = topic.NewTopicBuilder(opts.TopicRoot)

	mqttConfig := opts.ToClientConfig()
	if mqttConfig.ClientID == "" {
		mqttConfig.ClientID = fmt.Sprintf("rover-%s", id)
	}
	willTopic, willPayload := telemetry.Will(r.topics, id)
	mqttConfig.Will = &mqtt.Will{Topic: willTopic, Payload: willPayload, QoS: mqtt.AtLeastOnce, Retain: true}

	client, err := mqtt.NewClient(mqttConfig)
	if err != nil {
		return fmt.Errorf("failed to init mqtt client: %w", err)
	}
	r.client = client

	r.publisher = telemetry.NewPublisher(client, r.topics, r.reporter, r.clock, opts.StatusInterval)
	r.publisher.Attach(r.mission.Supervisor)
	return nil
}

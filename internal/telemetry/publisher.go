package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/rover/internal/mission"
	"github.com/autopeer-io/rover/pkg/log"
	"github.com/autopeer-io/rover/pkg/mqtt"
	"github.com/autopeer-io/rover/pkg/mqtt/topic"
)

const (
	transitionQueueSize = 64
	consoleTimeout      = 5 * time.Second
	offlineTimeout      = 2 * time.Second
)

// Link is the retained online marker of a rover.
type Link struct {
	Rover  string `json:"rover"`
	Online bool   `json:"online"`
}

// ConsoleAck is the reply to one console line.
type ConsoleAck struct {
	Line   string `json:"line"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Will returns the topic and payload the broker publishes when the rover drops off the link.
func Will(tb *topic.TopicBuilder, roverID string) (string, []byte) {
	payload, _ := json.Marshal(Link{Rover: roverID, Online: false})
	return tb.Link(roverID), payload
}

// Publisher streams transitions and periodic status over MQTT and executes
// console lines received from the ground station.
type Publisher struct {
	client   mqtt.Client
	topics   *topic.TopicBuilder
	reporter *Reporter
	clock    clock.WithTicker
	interval time.Duration
	log      log.Logger

	transitions chan mission.Transition
}

// NewPublisher creates a Publisher. Attach must be called before the scheduler starts.
func NewPublisher(client mqtt.Client, tb *topic.TopicBuilder, reporter *Reporter, clk clock.WithTicker, interval time.Duration) *Publisher {
	return &Publisher{
		client:      client,
		topics:      tb,
		reporter:    reporter,
		clock:       clk,
		interval:    interval,
		log:         log.WithName("telemetry"),
		transitions: make(chan mission.Transition, transitionQueueSize),
	}
}

// Attach subscribes the publisher to the transitions of sup.
func (p *Publisher) Attach(sup *mission.Supervisor) {
	sup.OnTransition(func(tr mission.Transition) {
		select {
		case p.transitions <- tr:
		default:
			p.log.Warn("Transition queue full, transition not published", "from", tr.From, "to", tr.To)
		}
	})
}

// Run publishes until ctx ends. It returns an error only if the console
// subscription fails.
func (p *Publisher) Run(ctx context.Context) error {
	id := p.reporter.RoverID()

	if err := p.client.AwaitConnection(ctx); err != nil {
		if errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	}
	p.publishLink(ctx, true)
	if err := p.client.Subscribe(ctx, p.topics.Console(id), mqtt.AtLeastOnce, p.handleConsole); err != nil {
		return err
	}
	p.log.Info("Telemetry started", "rover", id, "interval", p.interval)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			offCtx, cancel := context.WithTimeout(context.Background(), offlineTimeout)
			p.publishLink(offCtx, false)
			cancel()
			return nil
		case tr := <-p.transitions:
			p.publish(ctx, p.topics.Transition(id), mqtt.AtLeastOnce, tr)
		case <-ticker.C():
			st, err := p.reporter.Status(ctx)
			if err != nil {
				continue
			}
			p.publish(ctx, p.topics.Status(id), mqtt.AtMostOnce, st)
		}
	}
}

func (p *Publisher) handleConsole(ctx context.Context, _ string, payload []byte) {
	line := string(payload)
	ctx, cancel := context.WithTimeout(ctx, consoleTimeout)
	defer cancel()

	out, err := p.reporter.Submit(ctx, line)
	ack := ConsoleAck{Line: line, Output: out}
	if err != nil {
		ack.Error = err.Error()
	}
	p.log.Info("Console line executed", "line", line, "ok", err == nil)
	p.publish(ctx, p.topics.ConsoleAck(p.reporter.RoverID()), mqtt.AtLeastOnce, ack)
}

func (p *Publisher) publishLink(ctx context.Context, online bool) {
	id := p.reporter.RoverID()
	payload, _ := json.Marshal(Link{Rover: id, Online: online})
	if err := p.client.Publish(ctx, p.topics.Link(id), mqtt.AtLeastOnce, true, payload); err != nil {
		p.log.Error(err, "Failed to publish link state", "online", online)
	}
}

func (p *Publisher) publish(ctx context.Context, t string, qos int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.log.Error(err, "Failed to encode telemetry", "topic", t)
		return
	}
	if err := p.client.Publish(ctx, t, qos, false, payload); err != nil {
		p.log.Error(err, "Failed to publish telemetry", "topic", t)
	}
}

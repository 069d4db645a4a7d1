package topic

import (
	"fmt"
	"strings"
)

// Wildcard matches exactly one topic level.
const Wildcard = "+"

// Topic segments shared between the rover and the ground station.
// Changing these values breaks compatibility with deployed ground tooling.
const (
	// SuffixTransition carries every mission state change (Rover -> Ground).
	// Structure: {root}/rover/transition/{roverID}
	SuffixTransition = "rover/transition"

	// SuffixStatus carries the periodic sensor and task summary (Rover -> Ground).
	// Structure: {root}/rover/status/{roverID}
	SuffixStatus = "rover/status"

	// SuffixConsole carries console lines to execute on the rover (Ground -> Rover).
	// Structure: {root}/rover/console/{roverID}
	SuffixConsole = "rover/console"

	// SuffixConsoleAck carries the console output for a line (Rover -> Ground).
	// Structure: {root}/rover/console/ack/{roverID}
	SuffixConsoleAck = "rover/console/ack"

	// SuffixSensor carries raw readings from external sensor drivers (Driver -> Rover).
	// Structure: {root}/rover/sensor/{roverID}/{kind}
	SuffixSensor = "rover/sensor"

	// SuffixLink carries the retained online/offline marker, used as the will message.
	// Structure: {root}/rover/link/{roverID}
	SuffixLink = "rover/link"
)

// TopicBuilder builds the topics of the rover protocol under one root, e.g. "mission/v1".
type TopicBuilder struct {
	root string
}

func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: root}
}

// Transition returns the topic a rover publishes its state changes to.
func (b *TopicBuilder) Transition(roverID string) string {
	return b.build(SuffixTransition, roverID)
}

// TransitionWildcard subscribes a ground station to every rover's transitions.
// Result: {root}/rover/transition/+
func (b *TopicBuilder) TransitionWildcard() string {
	return b.build(SuffixTransition, Wildcard)
}

// Status returns the periodic status topic of a rover.
func (b *TopicBuilder) Status(roverID string) string {
	return b.build(SuffixStatus, roverID)
}

// Console returns the topic a rover reads console lines from.
func (b *TopicBuilder) Console(roverID string) string {
	return b.build(SuffixConsole, roverID)
}

// ConsoleAck returns the topic a rover writes console output to.
func (b *TopicBuilder) ConsoleAck(roverID string) string {
	return b.build(SuffixConsoleAck, roverID)
}

// Sensor returns the topic an external driver publishes one kind of reading to.
func (b *TopicBuilder) Sensor(roverID, kind string) string {
	return fmt.Sprintf("%s/%s", b.build(SuffixSensor, roverID), kind)
}

// SensorWildcard matches every sensor kind of one rover.
// Result: {root}/rover/sensor/{roverID}/+
func (b *TopicBuilder) SensorWildcard(roverID string) string {
	return b.Sensor(roverID, Wildcard)
}

// Link returns the retained link-state topic of a rover.
func (b *TopicBuilder) Link(roverID string) string {
	return b.build(SuffixLink, roverID)
}

// build returns {root}/{suffix}/{id}.
func (b *TopicBuilder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}

// LastSegment returns the final level of a topic, e.g. the sensor kind.
func LastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicBuilder(t *testing.T) {
	b := NewTopicBuilder("mission/v1")

	assert.Equal(t, "mission/v1/rover/transition/r1", b.Transition("r1"))
	assert.Equal(t, "mission/v1/rover/transition/+", b.TransitionWildcard())
	assert.Equal(t, "mission/v1/rover/console/ack/r1", b.ConsoleAck("r1"))
	assert.Equal(t, "mission/v1/rover/sensor/r1/gps", b.Sensor("r1", "gps"))
	assert.Equal(t, "mission/v1/rover/sensor/r1/+", b.SensorWildcard("r1"))
}

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "gps", LastSegment("mission/v1/rover/sensor/r1/gps"))
	assert.Equal(t, "plain", LastSegment("plain"))
}

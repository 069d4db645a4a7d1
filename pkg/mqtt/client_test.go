package mqtt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchFilter(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b/d", false},
		{"a/b/c", "a/b", false},
		{"a/b", "a/b/c", false},
		{"a/+/c", "a/b/c", true},
		{"a/+/c", "a/b/d", false},
		{"a/+", "a/b/c", false},
		{"a/#", "a/b/c", true},
		{"a/b/#", "a/b", true},
		{"#", "a", true},
		{"$share/ground/a/+", "a/b", true},
		{"mission/v1/rover/sensor/r1/+", "mission/v1/rover/sensor/r1/gps", true},
		{"mission/v1/rover/sensor/r1/+", "mission/v1/rover/sensor/r2/gps", false},
	}

	for _, tt := range tests {
		t.Run(tt.filter+"~"+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, matchFilter(tt.filter, tt.topic))
		})
	}
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)

	_, err = NewClient(&ClientConfig{BrokerURL: "not a url"})
	require.Error(t, err)

	_, err = NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883", Will: &Will{QoS: 1}})
	assert.ErrorContains(t, err, "will topic")

	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883"})
	require.NoError(t, err)
	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.Publish(context.Background(), "a", AtMostOnce, false, nil), errNotStarted)
}

func TestConfigDefaults(t *testing.T) {
	cfg := (&ClientConfig{BrokerURL: "tcp://localhost:1883"}).withDefaults()
	assert.Equal(t, defaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, uint16(defaultKeepAlive), cfg.KeepAlive)
	assert.Equal(t, defaultRetryDelay, cfg.RetryDelay)
}

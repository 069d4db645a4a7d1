package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissionOptions(t *testing.T) {
	o := NewMissionOptions()
	require.NoError(t, o.Validate())

	fss := o.Flags()
	for _, name := range []string{"rover", "mission", "mqtt", "http", "grpc", "s3", "log"} {
		assert.Contains(t, fss.Order, name)
	}
	require.NoError(t, fss.FlagSet("mission").Parse([]string{"--mission.navigating.goal-lat=91"}))
	require.NoError(t, fss.FlagSet("rover").Parse([]string{"--rover.tick-period=0"}))

	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goal")
	assert.Contains(t, err.Error(), "rover.tick-period")

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.Rover, cfg.Rover)
	assert.Nil(t, cfg.Clock)
}

//go:build !linux

package hal

import (
	"errors"

	"github.com/autopeer-io/rover/internal/rover/core"
)

// NewRPi is only available on linux.
func NewRPi(string, PinConfig, *Bridge) (core.HAL, error) {
	return nil, errors.New("the rpi HAL requires linux")
}

package mqtt

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultKeepAlive      = 60
	defaultRetryDelay     = 3 * time.Second
)

// Will is the message the broker publishes when the rover drops off the link
// without a DISCONNECT.
type Will struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// ClientConfig holds the connection settings of a Client.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive in seconds.
	KeepAlive uint16

	ConnectTimeout time.Duration

	// RetryDelay is the pause between two connection attempts.
	RetryDelay time.Duration

	// SessionExpiry in seconds.
	SessionExpiry uint32
	CleanStart    bool

	InsecureSkipVerify bool

	// Will is optional.
	Will *Will
}

func (c *ClientConfig) withDefaults() ClientConfig {
	out := *c
	if out.ConnectTimeout == 0 {
		out.ConnectTimeout = defaultConnectTimeout
	}
	if out.KeepAlive == 0 {
		out.KeepAlive = defaultKeepAlive
	}
	if out.RetryDelay == 0 {
		out.RetryDelay = defaultRetryDelay
	}
	return out
}

// Validate checks the broker URL and the will message.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	u, err := url.Parse(c.BrokerURL)
	if err != nil {
		return fmt.Errorf("invalid broker url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("broker url %q must have a scheme and host", c.BrokerURL)
	}
	if c.Will != nil {
		if c.Will.Topic == "" {
			return errors.New("will topic is required")
		}
		if c.Will.QoS > 2 {
			return errors.New("will qos must be 0, 1 or 2")
		}
	}
	return nil
}

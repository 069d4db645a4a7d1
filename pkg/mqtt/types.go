package mqtt

import (
	"context"
)

// Delivery levels used by the rover.
const (
	// AtMostOnce is used for periodic data where the next sample supersedes a lost one.
	AtMostOnce = 0
	// AtLeastOnce is used for transitions, console traffic and the link marker.
	AtLeastOnce = 1
)

// MessageHandler processes one received message. Handlers run on their own
// goroutine and may block.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is the broker connection shared by telemetry and the sensor bridge.
type Client interface {
	// Start dials the broker in the background and returns at once.
	Start(ctx context.Context) error

	// Disconnect sends DISCONNECT, so the broker drops the will message.
	Disconnect(ctx context.Context)

	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe routes messages matching filter to handler. The subscription
	// is replayed after every reconnect.
	Subscribe(ctx context.Context, filter string, qos int, handler MessageHandler) error

	Unsubscribe(ctx context.Context, filter string) error

	// AwaitConnection blocks until the first CONNACK or until ctx is done.
	AwaitConnection(ctx context.Context) error

	IsConnected() bool
}

package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/rover/pkg/log"
)

var errNotStarted = errors.New("mqtt client not started")

type subscription struct {
	qos     byte
	handler MessageHandler
}

// client implements Client on top of the autopaho connection manager.
type client struct {
	cfg ClientConfig
	log log.Logger

	cm        *autopaho.ConnectionManager
	connected atomic.Bool

	mu   sync.RWMutex
	subs map[string]subscription
}

// NewClient validates cfg and returns a Client. No connection is made until Start.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, errors.New("mqtt config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &client{
		cfg:  cfg.withDefaults(),
		log:  log.WithName("mqtt"),
		subs: make(map[string]subscription),
	}, nil
}

func (c *client) Start(ctx context.Context) error {
	if c.cm != nil {
		return errors.New("mqtt client already started")
	}
	broker, err := url.Parse(c.cfg.BrokerURL)
	if err != nil {
		return err
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{broker},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(c.cfg.RetryDelay),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg:                        &tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify},
		WillMessage:                   c.will(),
		OnConnectionUp:                c.onConnectionUp,
		OnConnectError:                c.onConnectError,
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.onClientError,
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived:  []func(paho.PublishReceived) (bool, error){c.route},
		},
	}

	c.log.Info("Connecting to broker", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)
	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("failed to start mqtt connection: %w", err)
	}
	c.cm = cm
	return nil
}

func (c *client) Disconnect(ctx context.Context) {
	if c.cm == nil {
		return
	}
	if err := c.cm.Disconnect(ctx); err != nil {
		c.log.Warn("Disconnect did not complete", "err", err)
		return
	}
	c.connected.Store(false)
	c.log.Info("Disconnected from broker")
}

func (c *client) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if c.cm == nil {
		return errNotStarted
	}
	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})
	return err
}

func (c *client) Subscribe(ctx context.Context, filter string, qos int, handler MessageHandler) error {
	if c.cm == nil {
		return errNotStarted
	}

	// Registered before the packet so onConnectionUp replays it if we are offline.
	c.mu.Lock()
	c.subs[filter] = subscription{qos: byte(qos), handler: handler}
	c.mu.Unlock()

	if !c.connected.Load() {
		c.log.Debug("Subscription deferred until connected", "filter", filter)
		return nil
	}
	if _, err := c.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: byte(qos)}},
	}); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", filter, err)
	}
	c.log.Info("Subscribed", "filter", filter)
	return nil
}

func (c *client) Unsubscribe(ctx context.Context, filter string) error {
	if c.cm == nil {
		return errNotStarted
	}
	c.mu.Lock()
	delete(c.subs, filter)
	c.mu.Unlock()

	_, err := c.cm.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{filter}})
	return err
}

func (c *client) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return errNotStarted
	}
	return c.cm.AwaitConnection(ctx)
}

func (c *client) IsConnected() bool {
	return c.connected.Load()
}

// onConnectionUp replays every registered filter in a single SUBSCRIBE.
func (c *client) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	c.connected.Store(true)

	c.mu.RLock()
	opts := make([]paho.SubscribeOptions, 0, len(c.subs))
	for filter, sub := range c.subs {
		opts = append(opts, paho.SubscribeOptions{Topic: filter, QoS: sub.qos})
	}
	c.mu.RUnlock()

	c.log.Info("Connected to broker", "subscriptions", len(opts))
	if len(opts) == 0 {
		return
	}
	if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{Subscriptions: opts}); err != nil {
		c.log.Error(err, "Failed to restore subscriptions")
	}
}

func (c *client) onConnectError(err error) {
	c.connected.Store(false)
	c.log.Error(err, "Connection attempt failed, retrying", "delay", c.cfg.RetryDelay)
}

func (c *client) onClientError(err error) {
	c.connected.Store(false)
	c.log.Error(err, "Client error")
}

func (c *client) onServerDisconnect(d *paho.Disconnect) {
	c.connected.Store(false)
	reason := ""
	if d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	c.log.Warn("Broker closed the connection", "code", d.ReasonCode, "reason", reason)
}

// route hands each message to every matching handler. Handlers run on their
// own goroutine so the paho reader is never blocked.
func (c *client) route(p paho.PublishReceived) (bool, error) {
	topic, payload := p.Packet.Topic, p.Packet.Payload

	c.mu.RLock()
	var handlers []MessageHandler
	for filter, sub := range c.subs {
		if matchFilter(filter, topic) {
			handlers = append(handlers, sub.handler)
		}
	}
	c.mu.RUnlock()

	if len(handlers) == 0 {
		c.log.Debug("No handler for message", "topic", topic)
	}
	for _, h := range handlers {
		go h(context.Background(), topic, payload)
	}
	return true, nil
}

func (c *client) will() *paho.WillMessage {
	if c.cfg.Will == nil {
		return nil
	}
	return &paho.WillMessage{
		Topic:   c.cfg.Will.Topic,
		Payload: c.cfg.Will.Payload,
		QoS:     c.cfg.Will.QoS,
		Retain:  c.cfg.Will.Retain,
	}
}

// matchFilter reports whether topic matches filter, honouring "+" and "#"
// and ignoring a leading "$share/<group>/".
func matchFilter(filter, topic string) bool {
	if rest, ok := strings.CutPrefix(filter, "$share/"); ok {
		if _, shared, found := strings.Cut(rest, "/"); found {
			filter = shared
		}
	}

	for {
		level, filterRest, more := strings.Cut(filter, "/")
		if level == "#" {
			return true
		}
		name, topicRest, topicMore := strings.Cut(topic, "/")
		if level != "+" && level != name {
			return false
		}
		if !more {
			return !topicMore
		}
		if !topicMore {
			// "a/#" also matches its parent "a".
			return filterRest == "#"
		}
		filter, topic = filterRest, topicRest
	}
}

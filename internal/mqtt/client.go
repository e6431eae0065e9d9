// internal/mqtt/client.go
package mqtt

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/seesaw-poller/internal/config"
	"github.com/tamzrod/seesaw-poller/internal/logging"
	"github.com/tamzrod/seesaw-poller/internal/poller"
)

// Client wraps paho with the position/status topics.
// All methods are safe for concurrent use.
type Client struct {
	client   pahomqtt.Client
	topics   Topics
	clientID string
	qos      byte
	retained bool
	log      *slog.Logger

	connected atomic.Bool
}

// Connect dials the broker, waits for the first connection and publishes
// "online" on the status topic. Paho reconnects on its own afterwards.
func Connect(cfg config.MQTTConfig, log *slog.Logger) (*Client, error) {
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}

	c := &Client{
		topics:   Topics{Prefix: cfg.TopicPrefix},
		clientID: ClientID(cfg),
		qos:      byte(cfg.QoS),
		retained: cfg.Retained,
		log:      logging.OrDiscard(log).With("component", "mqtt"),
	}

	opts := buildClientOptions(cfg, c.clientID, c.topics)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// OnConnect runs asynchronously and may not have fired yet.
	c.connected.Store(true)
	return c, nil
}

func (c *Client) ClientID() string { return c.clientID }

func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.log.Info("mqtt connected")
	c.client.Publish(c.topics.Status(), c.qos, true, statusPayload("online", c.clientID, ""))
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)
	c.log.Warn("mqtt connection lost", "error", err)
}

func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client.IsConnected()
}

// Publish sends payload to topic and waits for the broker acknowledgment.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Write publishes one position change with the configured QoS and retain flag.
func (c *Client) Write(ev poller.Event) error {
	return c.Publish(c.topics.Position(ev.ChannelID), PositionPayload(ev.Payload), c.qos, c.retained)
}

// Close publishes a graceful "offline" and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(c.topics.Status(), c.qos, true, statusPayload("offline", c.clientID, "graceful_shutdown"))
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

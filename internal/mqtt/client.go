// internal/mqtt/client.go
package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Sender publishes single messages. It is handed out by Exclusive.
type Sender interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Client is the bridge's broker session. paho owns reconnection; Client
// tracks the session, forwards its transitions and serializes sends.
type Client struct {
	client pahomqtt.Client
	cfg    Config
	logger *zap.Logger

	sendMu sync.Mutex

	mu           sync.RWMutex
	up           bool
	onConnect    func()
	onDisconnect func(err error)
}

// New builds the paho client. It does not connect.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{cfg: cfg, logger: logger}

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionDown(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.logger.Debug("broker reconnect attempt", zap.String("broker", cfg.Broker))
	})

	c.client = pahomqtt.NewClient(opts)
	return c
}

// Connect waits for the first session until ctx ends. paho keeps retrying
// in the background either way.
func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

func (c *Client) sessionUp() {
	c.mu.Lock()
	c.up = true
	fn := c.onConnect
	c.mu.Unlock()

	c.logger.Info("broker session up",
		zap.String("broker", c.cfg.Broker),
		zap.String("client_id", c.cfg.ClientID),
	)
	if fn != nil {
		fn()
	}
}

func (c *Client) sessionDown(err error) {
	c.mu.Lock()
	c.up = false
	fn := c.onDisconnect
	c.mu.Unlock()

	c.logger.Warn("broker session lost", zap.Error(err))
	if fn != nil {
		fn(err)
	}
}

// Close announces offline (retained) while the session is still up, then
// disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() && c.cfg.StatusTopic != "" {
		if err := c.Publish(c.cfg.StatusTopic, []byte(PayloadOffline), c.cfg.QoS, true); err != nil {
			c.logger.Warn("offline status not published", zap.Error(err))
		}
	}
	c.client.Disconnect(defaultDisconnectQuiesce)

	c.mu.Lock()
	c.up = false
	c.mu.Unlock()
	return nil
}

func (c *Client) IsConnected() bool {
	if c.client == nil {
		return false
	}
	c.mu.RLock()
	up := c.up
	c.mu.RUnlock()
	return up && c.client.IsConnected()
}

func (c *Client) QoS() byte { return c.cfg.QoS }

// SetOnConnect registers fn for the first session and every reconnect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

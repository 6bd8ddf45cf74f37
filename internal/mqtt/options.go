// internal/mqtt/options.go
package mqtt

import (
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Connection constants.
const (
	// defaultConnectTimeout bounds a single network connect attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is used when Config.KeepAlive is zero.
	defaultKeepAlive = 60 * time.Second

	// defaultBatchTimeout bounds the acknowledgement waits of one Exclusive batch.
	defaultBatchTimeout = 2 * time.Second

	defaultRetryInterval = 5 * time.Second
	maxReconnectInterval = 60 * time.Second

	// willQoS is the QoS of the last-will message.
	willQoS = 1

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2
)

// Config is the bus client configuration.
type Config struct {
	Broker   string // tcp://host:1883
	ClientID string
	Username string
	Password string
	QoS      byte

	KeepAlive     time.Duration
	RetryInterval time.Duration
	BatchTimeout  time.Duration

	// StatusTopic receives the retained last-will "offline".
	StatusTopic string
}

// buildClientOptions creates paho options from the bridge config.
// Reconnection is left to paho; the client only reports the transitions.
func buildClientOptions(cfg Config) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	// Retained discovery and status carry the state; no persistent session.
	opts.SetCleanSession(true)

	retry := cfg.RetryInterval
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(retry)
	opts.SetMaxReconnectInterval(maxReconnectInterval)

	opts.SetConnectTimeout(defaultConnectTimeout)

	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	opts.SetKeepAlive(keepAlive)

	configureLWT(opts, cfg.StatusTopic)
	return opts
}

// configureLWT makes the broker mark the device offline on an ungraceful
// disconnect.
//
// Topic: <prefix>/status
// Retained: true (new subscribers see last status)
func configureLWT(opts *pahomqtt.ClientOptions, statusTopic string) {
	if statusTopic == "" {
		return
	}
	opts.SetWill(statusTopic, PayloadOffline, willQoS, true)
}

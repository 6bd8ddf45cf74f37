// internal/mqtt/publish.go
package mqtt

import (
	"fmt"
	"time"
)

const maxPayloadSize = 1 << 20

// Publish sends one message, serialized with every other send.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.publish(topic, payload, qos, retained, defaultPublishTimeout)
}

// Exclusive runs fn with the send lock held, so a batch of messages is not
// interleaved with other senders. fn must only publish through s.
//
// The batch shares one acknowledgement budget (Config.BatchTimeout). Once it
// is spent the remaining sends fail without reaching the broker.
func (c *Client) Exclusive(fn func(s Sender) error) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	budget := c.cfg.BatchTimeout
	if budget <= 0 {
		budget = defaultBatchTimeout
	}
	return fn(&batchSender{c: c, deadline: time.Now().Add(budget)})
}

type batchSender struct {
	c        *Client
	deadline time.Time
}

func (s *batchSender) Publish(topic string, payload []byte, qos byte, retained bool) error {
	left := time.Until(s.deadline)
	if left <= 0 {
		return fmt.Errorf("%w: batch deadline exceeded, %s dropped", ErrPublishFailed, topic)
	}
	return s.c.publish(topic, payload, qos, retained, min(left, defaultPublishTimeout))
}

func (c *Client) publish(topic string, payload []byte, qos byte, retained bool, wait time.Duration) error {
	if !validTopic(topic) {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload on %s", ErrPublishFailed, len(payload), topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("%w: no ack on %s within %v", ErrPublishFailed, topic, wait)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

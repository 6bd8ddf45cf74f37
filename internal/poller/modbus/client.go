// internal/poller/modbus/client.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/goburrow/modbus"
)

// ErrNotConnected is returned by reads issued without an open session.
var ErrNotConnected = errors.New("modbus client: not connected")

// Client implements poller.Client and link.Connector over Modbus TCP.
// It serializes requests; one session is shared by the poller and the
// link supervisor.
type Client struct {
	mu        sync.Mutex
	cfg       Config
	handler   *modbus.TCPClientHandler
	client    modbus.Client
	connected bool

	onLoss func(error)
}

// Config is minimal transport config.
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
}

// New creates an unconnected client. Connect opens the session.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	return &Client{cfg: cfg}, nil
}

// OnLoss registers a callback for errors that mean the session is dead.
// It is invoked outside the client lock.
func (c *Client) OnLoss(fn func(error)) {
	c.mu.Lock()
	c.onLoss = fn
	c.mu.Unlock()
}

// Connect opens a fresh TCP session, replacing any previous one.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handler != nil {
		_ = c.handler.Close()
	}

	h := modbus.NewTCPClientHandler(c.cfg.Endpoint)
	h.Timeout = c.cfg.Timeout
	h.SlaveId = c.cfg.UnitID

	if err := h.Connect(); err != nil {
		c.handler, c.client, c.connected = nil, nil, false
		return fmt.Errorf("modbus client: connect %s: %w", c.cfg.Endpoint, err)
	}

	c.handler = h
	c.client = modbus.NewClient(h)
	c.connected = true
	return nil
}

// Close closes the TCP session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	if c.handler == nil {
		return nil
	}
	err := c.handler.Close()
	c.handler, c.client = nil, nil
	return err
}

// ReadInputRegisters reads qty input registers (FC 4) starting at addr.
func (c *Client) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	if !c.connected || c.client == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}

	raw, err := c.client.ReadInputRegisters(addr, qty)

	var lost func(error)
	switch {
	case err == nil:
	case isSessionLoss(err):
		_ = c.handler.Close()
		c.handler, c.client, c.connected = nil, nil, false
		lost = c.onLoss
	case needsResync(err):
		// A late reply would be read as the answer to the next request.
		// The handler redials on its next Send.
		_ = c.handler.Close()
	}
	c.mu.Unlock()

	if err != nil {
		if lost != nil {
			lost(fmt.Errorf("modbus client: session lost: %w", err))
		}
		return nil, fmt.Errorf("modbus: read input registers addr=0x%04X qty=%d: %w", addr, qty, err)
	}

	if len(raw) != int(qty)*2 {
		return nil, fmt.Errorf("modbus: read input registers: got %d bytes, want %d", len(raw), int(qty)*2)
	}
	return unpackRegisters(raw), nil
}

// Probe dials the endpoint to check reachability without touching the
// Modbus session.
func (c *Client) Probe(ctx context.Context) error {
	d := net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", c.cfg.Endpoint)
	if err != nil {
		return err
	}
	return conn.Close()
}

// isSessionLoss reports errors after which the TCP session cannot be reused.
// Timeouts and Modbus exceptions are not session loss.
func isSessionLoss(err error) bool {
	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// needsResync reports errors after which the byte stream may still hold a
// reply to an earlier request: read timeouts and MBAP header mismatches.
func needsResync(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "does not match request") ||
		strings.Contains(msg, "length in response")
}

// Modbus register memory order (BIG-ENDIAN)
func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}

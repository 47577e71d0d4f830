// internal/modbus/client.go
package modbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	gmodbus "github.com/goburrow/modbus"
	"github.com/rs/zerolog"
)

const (
	DefaultPort    = 502
	DefaultUnitID  = 1
	DefaultTimeout = time.Second

	maxReadQuantity = 125
)

// Config is the transport config for one device link.
type Config struct {
	Endpoint string // host:port
	UnitID   uint8
	Timeout  time.Duration

	// TransactionSeed is the id before the first request; the first
	// request carries TransactionSeed+1.
	TransactionSeed uint16

	Logger zerolog.Logger
}

// Client is a Modbus TCP client for a single device link.
// At most one request is in flight at a time; callers block until
// the current exchange has completed or timed out.
type Client struct {
	mu      sync.Mutex
	handler *tcpHandler
	client  gmodbus.Client
	closed  bool
}

// New creates a client. The connection is opened lazily on first use
// (or by Connect) and reused until it fails.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UnitID == 0 {
		cfg.UnitID = DefaultUnitID
	}

	h := &tcpHandler{
		address: cfg.Endpoint,
		unitID:  cfg.UnitID,
		timeout: cfg.Timeout,
		tid:     cfg.TransactionSeed,
		log: cfg.Logger.With().
			Str("component", "modbus").
			Str("endpoint", cfg.Endpoint).
			Uint8("unit_id", cfg.UnitID).
			Logger(),
		dialer: net.Dialer{KeepAlive: 30 * time.Second},
	}

	return &Client{
		handler: h,
		client:  gmodbus.NewClient(h),
	}, nil
}

// Connect opens the connection if it is not already open.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClosed
	}
	return c.handler.connect(ctx)
}

// Close tears down the connection. Subsequent requests fail.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return c.handler.close()
}

// Reset drops the current connection; the next request redials.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.drop()
}

// ReadHoldingRegisters reads quantity registers starting at addr (FC 0x03).
func (c *Client) ReadHoldingRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error) {
	if quantity == 0 || quantity > maxReadQuantity {
		return nil, fmt.Errorf("modbus: quantity %d out of range 1..%d", quantity, maxReadQuantity)
	}

	var data []byte
	err := c.do(ctx, func() (err error) {
		data, err = c.client.ReadHoldingRegisters(addr, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(data) != 2*int(quantity) {
		return nil, decodeErrorf("byte count %d for %d registers", len(data), quantity)
	}
	return unpackRegisters(data), nil
}

// ReadHoldingRegister reads one register.
func (c *Client) ReadHoldingRegister(ctx context.Context, addr uint16) (uint16, error) {
	regs, err := c.ReadHoldingRegisters(ctx, addr, 1)
	if err != nil {
		return 0, err
	}
	return regs[0], nil
}

// WriteSingleRegister writes one register (FC 0x06). Success is the
// device echoing address and value.
func (c *Client) WriteSingleRegister(ctx context.Context, addr, value uint16) error {
	return c.do(ctx, func() error {
		_, err := c.client.WriteSingleRegister(addr, value)
		return err
	})
}

func (c *Client) do(ctx context.Context, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClosed
	}

	c.handler.ctx = ctx
	defer func() { c.handler.ctx = nil }()

	return classify(fn())
}

var errClosed = &ConnectionError{Op: "send", Err: errors.New("client closed")}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return out
}

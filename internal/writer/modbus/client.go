// internal/writer/modbus/client.go
package modbus

import (
	"errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

const defaultTimeout = time.Second

// EndpointClient is a single connection (TCP or RTU) to one mirror endpoint.
// It serializes requests because it mutates SlaveId per write.
// The connection is opened lazily by the first request and re-opened by
// goburrow after a failure.
type EndpointClient struct {
	mu      sync.Mutex
	handler handler
	client  modbus.Client
}

// handler is what both goburrow client handlers have in common here.
type handler interface {
	modbus.ClientHandler
	Close() error
	setUnit(id uint8)
}

type tcpHandler struct{ *modbus.TCPClientHandler }

func (h tcpHandler) setUnit(id uint8) { h.SlaveId = id }

type rtuHandler struct{ *modbus.RTUClientHandler }

func (h rtuHandler) setUnit(id uint8) { h.SlaveId = id }

type Config struct {
	Endpoint string // host:port for TCP, serial device path for RTU
	Baud     int    // RTU only
	Timeout  time.Duration
}

// NewTCPClient creates a Modbus TCP client.
func NewTCPClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = timeoutOr(cfg.Timeout)

	return &EndpointClient{
		handler: tcpHandler{h},
		client:  modbus.NewClient(h),
	}, nil
}

// NewRTUClient creates a Modbus RTU client on a serial line (8E1).
func NewRTUClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: serial device required")
	}

	h := modbus.NewRTUClientHandler(cfg.Endpoint)
	h.Timeout = timeoutOr(cfg.Timeout)
	if cfg.Baud > 0 {
		h.BaudRate = cfg.Baud
	}
	h.DataBits = 8
	h.Parity = "E"
	h.StopBits = 1

	return &EndpointClient{
		handler: rtuHandler{h},
		client:  modbus.NewClient(h),
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteRegisters writes holding registers (FC16). Only area 3 is supported.
func (c *EndpointClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	if area != 3 {
		return errors.New("writer modbus: only holding registers can be written")
	}
	if len(regs) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.setUnit(unitID)

	qty := uint16(len(regs))
	payload := packRegisters(regs)

	_, err := c.client.WriteMultipleRegisters(addr, qty, payload)
	return err
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

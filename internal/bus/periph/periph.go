// internal/bus/periph/periph.go

// Package periph opens Linux I²C buses (/dev/i2c-N) through periph.io.
package periph

import (
	"fmt"
	"strconv"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/tamzrod/seesaw-poller/internal/bus"
)

var (
	initOnce sync.Once
	initErr  error
)

func hostInit() error {
	initOnce.Do(func() {
		_, initErr = host.Init()
	})
	return initErr
}

// Opener implements bus.Opener for numbered I²C buses.
type Opener struct{}

var _ bus.Opener = Opener{}

// Open initialises the host drivers on first use and opens bus busID.
func (Opener) Open(busID int) (bus.Transport, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	b, err := i2creg.Open(strconv.Itoa(busID))
	if err != nil {
		return nil, err
	}
	return &Transport{b: b}, nil
}

// Transport splits the two phases of a seesaw read into separate bus
// transactions; the settle delay between them is the caller's job.
type Transport struct {
	b i2c.BusCloser
}

func (t *Transport) Write(addr uint16, p []byte) error { return t.b.Tx(addr, p, nil) }
func (t *Transport) Read(addr uint16, p []byte) error  { return t.b.Tx(addr, nil, p) }
func (t *Transport) Close() error                      { return t.b.Close() }

func (t *Transport) String() string { return t.b.String() }

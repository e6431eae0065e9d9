// internal/bus/transport.go
package bus

import (
	"errors"
	"fmt"
)

// Transport is raw byte access to one physical bus.
// Only the bus's Serializer may call it.
type Transport interface {
	Write(addr uint16, p []byte) error
	Read(addr uint16, p []byte) error
	Close() error
}

// Opener opens the Transport for a bus identifier.
type Opener interface {
	Open(busID int) (Transport, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(busID int) (Transport, error)

func (f OpenerFunc) Open(busID int) (Transport, error) { return f(busID) }

// Error codes reported through Code(), as written to status blocks.
const (
	CodeTimeout uint16 = 2
	CodeStalled uint16 = 3
	CodeIO      uint16 = 4
	CodeOpen    uint16 = 5
	CodeClosed  uint16 = 6
)

type codedError struct {
	msg  string
	code uint16
}

func (e *codedError) Error() string { return e.msg }
func (e *codedError) Code() uint16  { return e.code }

var (
	// ErrTimeout means a single bus I/O call did not return within the I/O timeout.
	ErrTimeout error = &codedError{"bus: i/o timeout", CodeTimeout}

	// ErrBusStalled is returned for transactions dequeued while a timed-out
	// call is still outstanding on the bus.
	ErrBusStalled error = &codedError{"bus: stalled", CodeStalled}

	// ErrClosed is returned once the serializer or registry has been closed.
	ErrClosed error = &codedError{"bus: closed", CodeClosed}
)

// OpenError reports a failure to open the transport for a bus.
type OpenError struct {
	Bus int
	Err error
}

func (e *OpenError) Error() string { return fmt.Sprintf("bus %d: open: %v", e.Bus, e.Err) }
func (e *OpenError) Unwrap() error { return e.Err }
func (e *OpenError) Code() uint16  { return CodeOpen }

// IOError reports a failed write or read inside a transaction.
type IOError struct {
	Bus  int
	Addr uint16
	Op   string // "write" or "read"
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("bus %d: %s 0x%02x: %v", e.Bus, e.Op, e.Addr, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Code is the code of the underlying bus error, or CodeIO.
func (e *IOError) Code() uint16 {
	var c *codedError
	if errors.As(e.Err, &c) {
		return c.code
	}
	return CodeIO
}

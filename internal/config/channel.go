// internal/config/channel.go
package config

import "fmt"

// Channel defaults.
const (
	DefaultBus     = 1
	DefaultDevice  = 0x49
	DefaultEncoder = 0

	// seesaw position functions are 0x30..0x3F
	MaxEncoder = 15
)

func validBus(v int) bool     { return v > 0 }
func validDevice(v int) bool  { return v > 0 && v <= 0x7F }
func validEncoder(v int) bool { return v >= 0 && v <= MaxEncoder }

// BusID is the resolved bus identifier.
func (c ChannelConfig) BusID() int { return c.Bus.Or(DefaultBus, validBus) }

// Address is the resolved 7-bit device address.
func (c ChannelConfig) Address() uint16 { return uint16(c.Device.Or(DefaultDevice, validDevice)) }

// EncoderIndex is the resolved encoder index.
func (c ChannelConfig) EncoderIndex() uint8 {
	return uint8(c.Encoder.Or(DefaultEncoder, validEncoder))
}

// Name is ID, or a name derived from the resolved address when ID is empty.
func (c ChannelConfig) Name() string {
	if c.ID != "" {
		return c.ID
	}
	return fmt.Sprintf("bus%d-0x%02x-enc%d", c.BusID(), c.Address(), c.EncoderIndex())
}

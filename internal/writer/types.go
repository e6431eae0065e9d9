// internal/writer/types.go
package writer

import "github.com/tamzrod/seesaw-poller/internal/poller"

const areaHoldingRegisters byte = 3

// EndpointClient is the exact contract the writers use.
type EndpointClient interface {
	WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error
}

// TargetEndpoint is one mirror endpoint receiving the position registers.
type TargetEndpoint struct {
	TargetID uint32
	Endpoint string
	UnitID   uint8
	Address  uint16 // first of the two position registers
}

// StatusPlan locates one channel status block.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Plan is the fully-built write plan for one channel.
type Plan struct {
	ChannelID string
	Targets   []TargetEndpoint
	Status    []StatusPlan
}

// Writer mirrors position changes into targets.
type Writer interface {
	Write(ev poller.Event) error
}

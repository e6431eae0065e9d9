// internal/seesaw/protocol.go

// Package seesaw reads registers from Adafruit seesaw controllers.
//
// Every read is two bus transactions: a 2-byte write selecting
// (module base, function), then, after the controller has had time to
// prepare the reply, a plain read of the reply bytes.
package seesaw

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/tamzrod/seesaw-poller/internal/bus"
	"github.com/tamzrod/seesaw-poller/internal/config"
)

const (
	// DefaultAddress is the factory I²C address of the rotary encoder breakout.
	// Address 0 (general call) is never a seesaw and selects it instead.
	DefaultAddress uint16 = config.DefaultDevice

	// EncoderBase is the encoder module's register base.
	EncoderBase byte = 0x11
	// EncoderPosition is the position function for encoder 0; encoder n is EncoderPosition+n.
	EncoderPosition byte = 0x30

	// SettleDelay is the minimum wait between register select and read.
	SettleDelay = 8 * time.Millisecond
)

// ReadRegister selects (base, fn) on addr, waits settle and reads len(buf) bytes.
//
// Once the select has been written the wait always runs to completion, even
// if ctx is done, so the controller is never read early. ctx is only checked
// before anything touches the bus.
func ReadRegister(ctx context.Context, tx bus.Tx, addr uint16, base, fn byte, buf []byte, settle time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Write(addr, []byte{base, fn}); err != nil {
		return err
	}

	t := time.NewTimer(settle)
	<-t.C

	return tx.Read(addr, buf)
}

// PositionRequest is the select payload for encoder's position register.
func PositionRequest(encoder uint8) [2]byte {
	return [2]byte{EncoderBase, EncoderPosition + encoder}
}

// DecodePosition interprets a position reply as a big-endian int32.
func DecodePosition(b [4]byte) int32 {
	return int32(binary.BigEndian.Uint32(b[:]))
}

// ReadEncoderPosition reads the position of one encoder on the controller at addr.
func ReadEncoderPosition(ctx context.Context, tx bus.Tx, addr uint16, encoder uint8) (int32, error) {
	if addr == 0 {
		addr = DefaultAddress
	}
	req := PositionRequest(encoder)

	// fresh buffer per call: a timed-out read may still be filling it
	var reply [4]byte
	buf := make([]byte, len(reply))
	if err := ReadRegister(ctx, tx, addr, req[0], req[1], buf, SettleDelay); err != nil {
		return 0, err
	}
	copy(reply[:], buf)
	return DecodePosition(reply), nil
}

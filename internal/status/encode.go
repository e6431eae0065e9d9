// internal/status/encode.go
package status

import "errors"

// Encode converts a Snapshot into a full status block with an empty name.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError

	hi, lo := PositionWords(s.Position)
	regs[SlotPositionHigh] = hi
	regs[SlotPositionLow] = lo

	return regs
}

// PositionWords splits a position into two registers, high word first.
func PositionWords(p int32) (hi, lo uint16) {
	u := uint32(p)
	return uint16(u >> 16), uint16(u)
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns CodeGeneric.
func ErrorCode(err error) uint16 {
	if err == nil {
		return CodeNone
	}

	type coder interface{ Code() uint16 }

	var c coder
	if errors.As(err, &c) {
		if code := c.Code(); code != CodeNone {
			return code
		}
	}
	return CodeGeneric
}

// internal/seesaw/reader.go
package seesaw

import (
	"context"

	"github.com/tamzrod/seesaw-poller/internal/bus"
)

// Reader reads encoder positions through a bus Serializer, so each read is
// one indivisible transaction on the shared bus.
type Reader struct {
	s *bus.Serializer
}

func NewReader(s *bus.Serializer) *Reader {
	return &Reader{s: s}
}

// ReadPosition submits one position read and waits for its result.
func (r *Reader) ReadPosition(ctx context.Context, addr uint16, encoder uint8) (int32, error) {
	fut := bus.Submit(ctx, r.s, func(ctx context.Context, tx bus.Tx) (int32, error) {
		return ReadEncoderPosition(ctx, tx, addr, encoder)
	})
	select {
	case res := <-fut:
		return res.Value, res.Err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

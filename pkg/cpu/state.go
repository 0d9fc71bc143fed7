package cpu

import (
	"encoding/binary"
	"io"
)

// EncodeState writes the CPU's full architectural and micro-op state,
// little-endian: the registers, the running cycle count, the in-flight
// instruction's pending-cycle countdown, and the halt/interrupt latches -
// everything needed to resume execution mid-instruction exactly where it
// left off.
func (c *CPU) EncodeState(w io.Writer) error {
	fields := []interface{}{
		c.A, c.X, c.Y, c.SP, c.PC, c.P,
		c.Cycles,
		int32(c.pending),
		c.Halted, c.HaltCode,
		c.nmiPending, c.irqLine,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

// DecodeState reads back a state written by EncodeState, in the same
// field order.
func (c *CPU) DecodeState(r io.Reader) error {
	var pending int32
	fields := []interface{}{
		&c.A, &c.X, &c.Y, &c.SP, &c.PC, &c.P,
		&c.Cycles,
		&pending,
		&c.Halted, &c.HaltCode,
		&c.nmiPending, &c.irqLine,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	c.pending = int(pending)
	return nil
}

package ppu

import (
	"encoding/binary"
	"io"
)

// EncodeState writes the PPU's registers, scroll latches, OAM, the
// current framebuffer, and a snapshot of the 32-entry palette RAM
// (fetched through the bus, not duplicated state) so a save state can
// restore the exact picture being drawn mid-frame.
func (p *PPU) EncodeState(w io.Writer) error {
	fields := []interface{}{
		p.Ctrl, p.Mask, p.Status,
		p.OAMAddr, p.OAM,
		p.v, p.t, p.x, p.w,
		p.readBuffer, p.openBus,
		int32(p.Cycle), int32(p.Scanline), p.Frame, p.oddFrame,
		p.NMIRequested,
		p.FrameBuffer,
		p.PaletteManager.Emphasis,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	var palette [32]uint8
	for i := range palette {
		palette[i] = p.Bus.Peek(0x3F00 | uint16(i))
	}
	return binary.Write(w, binary.LittleEndian, palette)
}

// DecodeState reads back a state written by EncodeState, restoring the
// palette snapshot through the bus so $2007 reads/writes stay consistent
// with what the CPU sees.
func (p *PPU) DecodeState(r io.Reader) error {
	var cycle, scanline int32
	fields := []interface{}{
		&p.Ctrl, &p.Mask, &p.Status,
		&p.OAMAddr, &p.OAM,
		&p.v, &p.t, &p.x, &p.w,
		&p.readBuffer, &p.openBus,
		&cycle, &scanline, &p.Frame, &p.oddFrame,
		&p.NMIRequested,
		&p.FrameBuffer,
		&p.PaletteManager.Emphasis,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	p.Cycle = int(cycle)
	p.Scanline = int(scanline)

	var palette [32]uint8
	if err := binary.Read(r, binary.LittleEndian, &palette); err != nil {
		return err
	}
	for i, v := range palette {
		p.Bus.Poke(0x3F00|uint16(i), v)
	}
	return nil
}

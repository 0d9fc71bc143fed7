package nes

import "github.com/nescore-emu/nescore/pkg/cartridge"

// NameTableMirror is the PPU's 2KiB of on-console nametable RAM, exposed
// through the cartridge's declared mirroring mode: horizontal pairs the
// top two and bottom two of the four logical 1KiB tables, vertical pairs
// left and right. Four-screen carts would need their own extra VRAM,
// which no NROM cartridge provides, so that mode falls back to vertical.
type NameTableMirror struct {
	RAM  [2048]uint8
	Mode cartridge.Mirroring
}

func (n *NameTableMirror) physical(addr uint16) uint16 {
	addr &= 0x0FFF
	table := addr / 0x400
	offset := addr % 0x400

	var physTable uint16
	switch n.Mode {
	case cartridge.MirrorHorizontal:
		physTable = table / 2
	default: // MirrorVertical and the MirrorFourScreen fallback
		physTable = table % 2
	}
	return physTable*0x400 + offset
}

func (n *NameTableMirror) Peek(addr uint16) uint8 {
	return n.RAM[n.physical(addr)]
}

func (n *NameTableMirror) Poke(addr uint16, value uint8) {
	n.RAM[n.physical(addr)] = value
}

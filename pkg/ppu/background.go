package ppu

// backgroundPipeline holds the per-dot shift registers and the
// not-yet-shifted-in tile the fetch pipeline is assembling.
type backgroundPipeline struct {
	nextTileID uint8
	nextAttr   uint8
	nextLo     uint8
	nextHi     uint8

	shiftPatternLo uint16
	shiftPatternHi uint16
	shiftAttrLo    uint16
	shiftAttrHi    uint16
}

// tickBackground runs the 8-dot nametable/attribute/pattern fetch
// cadence and the per-dot shift, plus the coarse-X/fine-Y/horizontal and
// vertical v<-t copies Loopy's scrolling model requires.
func (p *PPU) tickBackground(visible, preRender bool) {
	fetching := (p.Cycle >= 1 && p.Cycle <= 256) || (p.Cycle >= 321 && p.Cycle <= 340)

	if fetching {
		p.shiftBackgroundRegisters()

		switch p.Cycle % 8 {
		case 1:
			p.reloadShiftRegisters()
			p.bg.nextTileID = p.Bus.Peek(0x2000 | (p.v & 0x0FFF))
		case 3:
			addr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
			attrByte := p.Bus.Peek(addr)
			shift := ((p.v >> 4) & 4) | (p.v & 2)
			p.bg.nextAttr = (attrByte >> shift) & 0x03
		case 5:
			table := uint16(0)
			if p.Ctrl&CtrlBGTable != 0 {
				table = 0x1000
			}
			fineY := (p.v >> 12) & 0x07
			p.bg.nextLo = p.Bus.Peek(table + uint16(p.bg.nextTileID)*16 + fineY)
		case 7:
			table := uint16(0)
			if p.Ctrl&CtrlBGTable != 0 {
				table = 0x1000
			}
			fineY := (p.v >> 12) & 0x07
			p.bg.nextHi = p.Bus.Peek(table + uint16(p.bg.nextTileID)*16 + fineY + 8)
		case 0:
			if p.renderingEnabled() {
				p.incrementCoarseX()
			}
		}
	}

	if !p.renderingEnabled() {
		return
	}

	if p.Cycle == 256 {
		p.incrementFineY()
	}
	if p.Cycle == 257 {
		p.reloadShiftRegisters()
		p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
	}
	if preRender && p.Cycle >= 280 && p.Cycle <= 304 {
		p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
	}
}

func (p *PPU) incrementCoarseX() {
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementFineY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	y := (p.v & 0x03E0) >> 5
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	p.v = (p.v & ^uint16(0x03E0)) | (y << 5)
}

func (p *PPU) reloadShiftRegisters() {
	p.bg.shiftPatternLo = (p.bg.shiftPatternLo & 0xFF00) | uint16(p.bg.nextLo)
	p.bg.shiftPatternHi = (p.bg.shiftPatternHi & 0xFF00) | uint16(p.bg.nextHi)
	attrLo := uint16(0)
	attrHi := uint16(0)
	if p.bg.nextAttr&0x01 != 0 {
		attrLo = 0xFF
	}
	if p.bg.nextAttr&0x02 != 0 {
		attrHi = 0xFF
	}
	p.bg.shiftAttrLo = (p.bg.shiftAttrLo & 0xFF00) | attrLo
	p.bg.shiftAttrHi = (p.bg.shiftAttrHi & 0xFF00) | attrHi
}

func (p *PPU) shiftBackgroundRegisters() {
	p.bg.shiftPatternLo <<= 1
	p.bg.shiftPatternHi <<= 1
	p.bg.shiftAttrLo <<= 1
	p.bg.shiftAttrHi <<= 1
}

// backgroundPixel returns the palette index (0-15) and opacity of the
// background pixel currently selected by fine X into the shifters.
func (p *PPU) backgroundPixel() (uint8, bool) {
	if p.Mask&MaskBGShow == 0 {
		return 0, false
	}
	if p.Cycle < 8 && p.Mask&MaskBGLeft == 0 {
		return 0, false
	}

	mux := uint16(0x8000) >> p.x
	lo := uint8(0)
	hi := uint8(0)
	if p.bg.shiftPatternLo&mux != 0 {
		lo = 1
	}
	if p.bg.shiftPatternHi&mux != 0 {
		hi = 1
	}
	colorIndex := (hi << 1) | lo

	attrLo := uint8(0)
	attrHi := uint8(0)
	if p.bg.shiftAttrLo&mux != 0 {
		attrLo = 1
	}
	if p.bg.shiftAttrHi&mux != 0 {
		attrHi = 1
	}
	palette := (attrHi << 1) | attrLo

	return (palette << 2) | colorIndex, colorIndex != 0
}

package ppu

// spritePipeline holds the eight fixed secondary-OAM slots evaluated for
// the scanline about to be rendered, and the pattern/attribute data
// fetched for each before that scanline's dots begin.
type spritePipeline struct {
	count int

	spriteY    [8]uint8
	spriteX    [8]uint8
	attr       [8]uint8
	patternLo  [8]uint8
	patternHi  [8]uint8
	isSprite0  [8]bool
	overflow   bool
}

// tickSpriteEvaluation scans OAM for sprites on the line after the one
// currently being drawn at dot 257 (when hardware would have finished
// its own incremental scan) and fetches their pattern bytes immediately,
// so the slots are ready before the target scanline's first visible dot.
func (p *PPU) tickSpriteEvaluation() {
	if p.Cycle != 257 {
		return
	}
	if !p.renderingEnabled() {
		p.spr = spritePipeline{}
		return
	}

	targetLine := p.Scanline + 1
	height := 8
	if p.Ctrl&CtrlSpriteSize != 0 {
		height = 16
	}

	var next spritePipeline
	for i := 0; i < 64 && next.count < 8; i++ {
		y := int(p.OAM[i*4])
		if targetLine < y || targetLine >= y+height {
			continue
		}
		slot := next.count
		next.spriteY[slot] = p.OAM[i*4]
		tile := p.OAM[i*4+1]
		attr := p.OAM[i*4+2]
		next.spriteX[slot] = p.OAM[i*4+3]
		next.attr[slot] = attr
		next.isSprite0[slot] = i == 0

		row := targetLine - y
		if attr&SpriteFlipVertical != 0 {
			row = height - 1 - row
		}

		var tileAddr uint16
		if height == 16 {
			table := uint16(0)
			if tile&1 != 0 {
				table = 0x1000
			}
			index := uint16(tile &^ 1)
			if row >= 8 {
				index++
				row -= 8
			}
			tileAddr = table + index*16 + uint16(row)
		} else {
			table := uint16(0)
			if p.Ctrl&CtrlSpriteTable != 0 {
				table = 0x1000
			}
			tileAddr = table + uint16(tile)*16 + uint16(row)
		}

		lo := p.Bus.Peek(tileAddr)
		hi := p.Bus.Peek(tileAddr + 8)
		if attr&SpriteFlipHorizontal != 0 {
			lo = reverseBits(lo)
			hi = reverseBits(hi)
		}
		next.patternLo[slot] = lo
		next.patternHi[slot] = hi
		next.count++
	}

	// A 9th match sets the sprite-overflow flag (the real hardware's
	// diagonal scan bug that makes overflow unreliable is a non-goal).
	matches := 0
	for i := 0; i < 64; i++ {
		y := int(p.OAM[i*4])
		if targetLine >= y && targetLine < y+height {
			matches++
		}
		if matches > 8 {
			next.overflow = true
			break
		}
	}
	if next.overflow {
		p.Status |= StatusSpriteOverflow
	}

	p.spr = next
}

func reverseBits(b uint8) uint8 {
	var r uint8
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

// spritePixel returns the palette index, opacity, front/back priority,
// and whether this is sprite 0 for the current dot. Sprites are checked
// in OAM-priority order (slot 0 = highest).
func (p *PPU) spritePixel() (paletteIndex uint8, opaque bool, inFront bool, isSprite0 bool) {
	if p.Mask&MaskSpriteShow == 0 {
		return 0, false, false, false
	}
	if p.Cycle < 8 && p.Mask&MaskSpriteLeft == 0 {
		return 0, false, false, false
	}

	x := p.Cycle
	for i := 0; i < p.spr.count; i++ {
		spriteX := int(p.spr.spriteX[i])
		if x < spriteX || x >= spriteX+8 {
			continue
		}
		bit := uint(x - spriteX)
		lo := (p.spr.patternLo[i] >> (7 - bit)) & 1
		hi := (p.spr.patternHi[i] >> (7 - bit)) & 1
		colorIndex := (hi << 1) | lo
		if colorIndex == 0 {
			continue
		}
		palette := p.spr.attr[i] & SpritePaletteMask
		return (palette << 2) | colorIndex, true, p.spr.attr[i]&SpritePriority == 0, p.spr.isSprite0[i]
	}
	return 0, false, false, false
}

// Sprite attribute flags
const (
	SpriteFlipHorizontal = 0x40
	SpriteFlipVertical   = 0x80
	SpritePriority       = 0x20 // 0=front of background, 1=behind background
	SpritePaletteMask    = 0x03
)

// composePixel combines the background and sprite pipelines for the
// current dot, handling sprite-0 hit and writing the framebuffer.
func (p *PPU) composePixel() {
	x := p.Cycle
	y := p.Scanline
	index := y*256 + x

	bgIndex, bgOpaque := p.backgroundPixel()
	sprIndex, sprOpaque, sprFront, sprite0 := p.spritePixel()

	leftMasked := x < 8 && (p.Mask&MaskBGLeft == 0 || p.Mask&MaskSpriteLeft == 0)
	if sprite0 && bgOpaque && sprOpaque && x >= 1 && !leftMasked &&
		p.Status&StatusSprite0Hit == 0 {
		p.Status |= StatusSprite0Hit
	}

	var paletteIndex uint8
	switch {
	case !bgOpaque && !sprOpaque:
		paletteIndex = 0
	case !bgOpaque && sprOpaque:
		paletteIndex = 0x10 | sprIndex
	case bgOpaque && !sprOpaque:
		paletteIndex = bgIndex
	case sprFront:
		paletteIndex = 0x10 | sprIndex
	default:
		paletteIndex = bgIndex
	}

	p.FrameBuffer[index] = p.PaletteManager.Color(paletteIndex)
	p.IndexBuffer[index] = paletteIndex
}

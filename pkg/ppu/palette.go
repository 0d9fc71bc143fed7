package ppu

import "github.com/nescore-emu/nescore/pkg/bus"

// NES master palette - 64 colors total, each an RGB triple.
var masterPalette = [64][3]uint8{
	// 0x00-0x0F
	{0x80, 0x80, 0x80}, {0x00, 0x3D, 0xA6}, {0x00, 0x12, 0xB0}, {0x44, 0x00, 0x96},
	{0xA1, 0x00, 0x5E}, {0xC7, 0x00, 0x28}, {0xBA, 0x06, 0x00}, {0x8C, 0x17, 0x00},
	{0x5C, 0x2F, 0x00}, {0x10, 0x45, 0x00}, {0x05, 0x4A, 0x00}, {0x00, 0x47, 0x2E},
	{0x00, 0x41, 0x66}, {0x00, 0x00, 0x00}, {0x05, 0x05, 0x05}, {0x05, 0x05, 0x05},

	// 0x10-0x1F
	{0xC7, 0xC7, 0xC7}, {0x00, 0x77, 0xFF}, {0x21, 0x55, 0xFF}, {0x82, 0x37, 0xFA},
	{0xEB, 0x2F, 0xB5}, {0xFF, 0x29, 0x50}, {0xFF, 0x22, 0x00}, {0xD6, 0x32, 0x00},
	{0xC4, 0x62, 0x00}, {0x35, 0x80, 0x00}, {0x05, 0x8F, 0x00}, {0x00, 0x8A, 0x55},
	{0x00, 0x99, 0xCC}, {0x21, 0x21, 0x21}, {0x09, 0x09, 0x09}, {0x09, 0x09, 0x09},

	// 0x20-0x2F
	{0xFF, 0xFF, 0xFF}, {0x0F, 0xD7, 0xFF}, {0x69, 0xA2, 0xFF}, {0xD4, 0x80, 0xFF},
	{0xFF, 0x45, 0xF3}, {0xFF, 0x61, 0x8B}, {0xFF, 0x88, 0x33}, {0xFF, 0x9C, 0x12},
	{0xFA, 0xBC, 0x20}, {0x9F, 0xE3, 0x0E}, {0x2B, 0xF0, 0x35}, {0x0C, 0xF0, 0xA4},
	{0x05, 0xFB, 0xFF}, {0x5E, 0x5E, 0x5E}, {0x0D, 0x0D, 0x0D}, {0x0D, 0x0D, 0x0D},

	// 0x30-0x3F
	{0xFF, 0xFF, 0xFF}, {0xA6, 0xFC, 0xFF}, {0xB3, 0xEC, 0xFF}, {0xDA, 0xAB, 0xEB},
	{0xFF, 0xA8, 0xF9}, {0xFF, 0xAB, 0xB3}, {0xFF, 0xD2, 0xB0}, {0xFF, 0xEF, 0xA6},
	{0xFF, 0xF7, 0x9C}, {0xD7, 0xFF, 0xB3}, {0xC6, 0xFF, 0xDE}, {0xC4, 0xFF, 0xF6},
	{0xC4, 0xF0, 0xFF}, {0xCC, 0xCC, 0xCC}, {0x3C, 0x3C, 0x3C}, {0x3C, 0x3C, 0x3C},
}

// PaletteManager resolves palette indices into ARGB colors and applies the
// PPUMASK color-emphasis bits. Palette RAM storage and its $10/$14/$18/$1C
// backdrop aliasing live on the PPU's bus (bus.PaletteControl), not here -
// this keeps a single source of truth for the bytes the CPU can also see
// through $2007.
type PaletteManager struct {
	bus      bus.AddressSpace
	Emphasis uint8 // bits 5-7 of PPUMASK
}

// NewPaletteManager creates a palette manager reading/writing through the
// given bus window (expected to be mounted at $3F00-$3FFF).
func NewPaletteManager(ppuBus bus.AddressSpace) *PaletteManager {
	return &PaletteManager{bus: ppuBus}
}

// Color converts a 5-bit palette RAM index (0x00-0x1F, where bit 4 selects
// the sprite palette bank) into an ARGB color, applying emphasis.
func (pm *PaletteManager) Color(index uint8) uint32 {
	value := pm.bus.Peek(0x3F00 | uint16(index&0x1F))
	return pm.getARGBColor(value & 0x3F)
}

// GetBackgroundColor gets a background palette color.
func (pm *PaletteManager) GetBackgroundColor(palette uint8, colorIndex uint8) uint32 {
	if palette > 3 || colorIndex > 3 {
		return 0xFF000000
	}
	addr := palette*4 + colorIndex
	if colorIndex == 0 {
		addr = 0
	}
	return pm.Color(addr)
}

// GetSpriteColor gets a sprite palette color; color 0 is transparent.
func (pm *PaletteManager) GetSpriteColor(palette uint8, colorIndex uint8) uint32 {
	if palette > 3 || colorIndex > 3 || colorIndex == 0 {
		return 0x00000000
	}
	return pm.Color(0x10 + palette*4 + colorIndex)
}

// getARGBColor converts a 6-bit palette index to a 32-bit ARGB color.
func (pm *PaletteManager) getARGBColor(paletteIndex uint8) uint32 {
	if paletteIndex >= 64 {
		paletteIndex = 0
	}
	rgb := masterPalette[paletteIndex]
	r, g, b := rgb[0], rgb[1], rgb[2]
	if pm.Emphasis != 0 {
		r, g, b = pm.applyEmphasis(r, g, b)
	}
	return 0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// applyEmphasis dims the non-emphasized channels per PPUMASK bits 5-7.
func (pm *PaletteManager) applyEmphasis(r, g, b uint8) (uint8, uint8, uint8) {
	if pm.Emphasis&0x20 == 0 {
		r = uint8(float32(r) * 0.75)
	}
	if pm.Emphasis&0x40 == 0 {
		g = uint8(float32(g) * 0.75)
	}
	if pm.Emphasis&0x80 == 0 {
		b = uint8(float32(b) * 0.75)
	}
	return r, g, b
}

// SetEmphasis sets the color emphasis bits (PPUMASK bits 5-7).
func (pm *PaletteManager) SetEmphasis(emphasis uint8) {
	pm.Emphasis = emphasis & 0xE0
}

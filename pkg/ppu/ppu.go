// Package ppu implements the 2C02-family Picture Processing Unit: the
// Loopy v/t/x/w scroll registers, the per-dot background shift-register
// pipeline, sprite evaluation into eight secondary slots, and the
// register ports the CPU bus mounts at $2000-$2007/$4014.
package ppu

import (
	"github.com/nescore-emu/nescore/pkg/bus"
	"github.com/nescore-emu/nescore/pkg/logger"
)

const (
	dotsPerScanline    = 341
	scanlinesPerFrame  = 262
	visibleScanlines   = 240
	postRenderScanline = 240
	vblankStartLine    = 241
	preRenderScanline  = 261
)

// PPUCTRL flags
const (
	CtrlNameTable   = 0x03
	CtrlIncrement   = 0x04
	CtrlSpriteTable = 0x08
	CtrlBGTable     = 0x10
	CtrlSpriteSize  = 0x20
	CtrlMasterSlave = 0x40
	CtrlNMIEnable   = 0x80
)

// PPUMASK flags
const (
	MaskGreyscale    = 0x01
	MaskBGLeft       = 0x02
	MaskSpriteLeft   = 0x04
	MaskBGShow       = 0x08
	MaskSpriteShow   = 0x10
	MaskRedEmphasis  = 0x20
	MaskGreenEmphasis = 0x40
	MaskBlueEmphasis = 0x80
)

// PPUSTATUS flags
const (
	StatusSpriteOverflow = 0x20
	StatusSprite0Hit     = 0x40
	StatusVBlank         = 0x80
)

// PPU is the NES picture processing unit.
type PPU struct {
	Ctrl   uint8 // $2000
	Mask   uint8 // $2001
	Status uint8 // $2002 (bits 0-4 are open bus, carried in openBus)

	OAMAddr uint8
	OAM     [256]uint8

	// Loopy scroll registers. v/t are 15 bits: yyy NN YYYYY XXXXX.
	v, t uint16
	x    uint8 // fine X, 3 bits
	w    bool  // write-toggle latch

	readBuffer uint8 // buffered $2007 read value
	openBus    uint8 // PPU I/O data bus latch

	Cycle    int // dot within scanline, 0-340
	Scanline int // 0-239 visible, 240 post-render, 241-260 vblank, 261 pre-render
	Frame    uint64
	oddFrame bool

	// NMI is edge-raised the instant VBlank sets (subject to CtrlNMIEnable)
	// and re-evaluated on every CTRL write per the well-known race
	// condition between PPUCTRL and the VBlank flag.
	NMIRequested bool

	FrameBuffer [256 * 240]uint32

	// IndexBuffer mirrors FrameBuffer but holds the raw 6-bit palette
	// index composePixel resolved for each dot, before PaletteManager
	// turned it into an RGB color - the headless protocol's raw
	// palette-index framebuffer style reads this directly instead of
	// re-deriving an index from an already-composited color.
	IndexBuffer [256 * 240]uint8

	PaletteManager *PaletteManager

	// Bus is the full $0000-$3FFF PPU address space: pattern tables
	// (cartridge CHR), nametables (mirrored RAM per the cartridge's
	// mirroring mode), and palette RAM, all composed externally by the
	// owning system container so this package stays domain-free about
	// mirroring policy.
	Bus bus.AddressSpace

	bg  backgroundPipeline
	spr spritePipeline

	// MapperIRQ lets a mapper with a scanline counter (not exercised by
	// the NROM-only cartridge package, but kept for the bus fabric's
	// sake) assert an IRQ line the system container forwards to the CPU.
	MapperIRQ func() bool
}

// New creates a PPU wired to the given PPU address space.
func New(ppuBus bus.AddressSpace) *PPU {
	return &PPU{
		Bus:            ppuBus,
		PaletteManager: NewPaletteManager(ppuBus),
	}
}

// Reset restores power-up state.
func (p *PPU) Reset() {
	p.Ctrl = 0
	p.Mask = 0
	p.Status = 0
	p.OAMAddr = 0
	p.v = 0
	p.t = 0
	p.x = 0
	p.w = false
	p.Cycle = 0
	p.Scanline = 0
	p.Frame = 0
	p.oddFrame = false
	p.NMIRequested = false
	p.bg = backgroundPipeline{}
	p.spr = spritePipeline{}
}

func (p *PPU) renderingEnabled() bool {
	return p.Mask&(MaskBGShow|MaskSpriteShow) != 0
}

// Tick advances the PPU by exactly one dot.
func (p *PPU) Tick() {
	p.PaletteManager.SetEmphasis(p.Mask & 0xE0)

	visible := p.Scanline >= 0 && p.Scanline < visibleScanlines
	preRender := p.Scanline == preRenderScanline

	if visible || preRender {
		p.tickBackground(visible, preRender)
		if visible {
			p.tickSpriteEvaluation()
		}
	}

	if visible && p.Cycle < 256 {
		p.composePixel()
	}

	if p.Scanline == vblankStartLine && p.Cycle == 1 {
		p.Status |= StatusVBlank
		if p.Ctrl&CtrlNMIEnable != 0 {
			p.NMIRequested = true
		}
	}

	if preRender && p.Cycle == 1 {
		p.Status &^= StatusVBlank | StatusSprite0Hit | StatusSpriteOverflow
	}

	p.Cycle++
	// Odd-frame dot skip: on the pre-render line of an odd frame, with
	// rendering enabled, dot 339 is skipped straight to dot 0 of the
	// next frame instead of reaching dot 340.
	if preRender && p.Cycle == 340 && p.oddFrame && p.renderingEnabled() {
		p.Cycle = 341
	}
	if p.Cycle >= dotsPerScanline {
		p.Cycle = 0
		p.Scanline++
		if p.Scanline >= scanlinesPerFrame {
			p.Scanline = 0
			p.Frame++
			p.oddFrame = !p.oddFrame
		}
	}
}

// ReadRegister services a CPU read of $2000-$2007. Unlisted addresses
// and write-only registers return the PPU open-bus latch.
func (p *PPU) ReadRegister(addr uint16) uint8 {
	switch addr & 7 {
	case 2: // PPUSTATUS
		value := (p.Status & 0xE0) | (p.openBus & 0x1F)
		logger.LogPPU("Read PPUSTATUS: $%02X", value)
		p.Status &^= StatusVBlank
		p.w = false
		p.openBus = value
		return value
	case 4: // OAMDATA
		value := p.OAM[p.OAMAddr]
		p.openBus = value
		return value
	case 7: // PPUDATA
		var value uint8
		if p.v >= 0x3F00 {
			value = p.Bus.Peek(p.v)
			p.readBuffer = p.Bus.Peek(p.v - 0x1000)
		} else {
			value = p.readBuffer
			p.readBuffer = p.Bus.Peek(p.v)
		}
		p.incrementV()
		p.openBus = value
		return value
	default:
		return p.openBus
	}
}

// WriteRegister services a CPU write of $2000-$2007.
func (p *PPU) WriteRegister(addr uint16, value uint8) {
	p.openBus = value
	switch addr & 7 {
	case 0: // PPUCTRL
		wasNMIEnabled := p.Ctrl&CtrlNMIEnable != 0
		p.Ctrl = value
		p.t = (p.t & 0xF3FF) | ((uint16(value) & 0x03) << 10)
		// Race condition: enabling NMI while VBlank is already set
		// fires immediately instead of waiting for the next VBlank.
		if !wasNMIEnabled && value&CtrlNMIEnable != 0 && p.Status&StatusVBlank != 0 {
			p.NMIRequested = true
		}
	case 1: // PPUMASK
		p.Mask = value
	case 3: // OAMADDR
		p.OAMAddr = value
	case 4: // OAMDATA
		p.OAM[p.OAMAddr] = value
		p.OAMAddr++
	case 5: // PPUSCROLL
		if !p.w {
			p.t = (p.t & 0xFFE0) | (uint16(value) >> 3)
			p.x = value & 0x07
			p.w = true
		} else {
			p.t = (p.t & 0x8FFF) | ((uint16(value) & 0x07) << 12)
			p.t = (p.t & 0xFC1F) | ((uint16(value) & 0xF8) << 2)
			p.w = false
		}
	case 6: // PPUADDR
		if !p.w {
			p.t = (p.t & 0x80FF) | ((uint16(value) & 0x3F) << 8)
			p.w = true
		} else {
			p.t = (p.t & 0xFF00) | uint16(value)
			p.v = p.t
			p.w = false
		}
	case 7: // PPUDATA
		p.Bus.Poke(p.v, value)
		p.incrementV()
	}
}

func (p *PPU) incrementV() {
	if p.Ctrl&CtrlIncrement != 0 {
		p.v += 32
	} else {
		p.v++
	}
}

// WriteOAMDMA copies a 256-byte page into OAM starting at OAMAddr,
// wrapping modulo 256 - the CPU-cycle stall this costs is the clock
// driver's responsibility (it owns the CPU bus the source page lives on).
func (p *PPU) WriteOAMDMA(page [256]uint8) {
	for i := 0; i < 256; i++ {
		p.OAM[uint8(int(p.OAMAddr)+i)] = page[i]
	}
}
